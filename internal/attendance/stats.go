package attendance

import "math"

// Aggregate computes status counts and the attendance percentage for one set
// of records. LATE counts as attending; LEAVE and EXCUSED only grow the
// denominator. That weighting is policy, not an accident.
func Aggregate(records []Record) Stats {
	var st Stats
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusAbsent:
			st.Absent++
		case StatusLate:
			st.Late++
		case StatusLeave:
			st.Leave++
		case StatusExcused:
			st.Excused++
		}
	}
	st.Total = len(records)
	if st.Total > 0 {
		st.Percentage = round2(float64(st.Present+st.Late) / float64(st.Total) * 100)
	}
	return st
}

// meanPercentage is the component-level "overall": the mean of per-student
// percentages, not a re-aggregation of raw counts. Average-of-averages is the
// documented behavior, weighting every student equally regardless of how many
// sessions each sat.
func meanPercentage(perStudent []StudentSummary) float64 {
	if len(perStudent) == 0 {
		return 0
	}
	var sum float64
	for _, s := range perStudent {
		sum += s.Stats.Percentage
	}
	return round2(sum / float64(len(perStudent)))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
