package train

import "github.com/ppiankov/newsprobe/internal/model"

// Evaluate builds the classification report; a zero denominator yields 0
func Evaluate(actual, predicted []model.Label) model.Evaluation {
	var ev model.Evaluation
	n := min(len(actual), len(predicted))
	ev.Total = n
	if n == 0 {
		return ev
	}

	correct := 0
	for i := 0; i < n; i++ {
		ev.Confusion[actual[i]][predicted[i]]++
		if actual[i] == predicted[i] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(n)

	for _, l := range model.Labels {
		tp := ev.Confusion[l][l]
		fn := ev.Confusion[l][l.Flip()]
		fp := ev.Confusion[l.Flip()][l]

		m := model.ClassMetrics{
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		ev.PerClass[l] = m
	}

	for _, m := range ev.PerClass {
		ev.MacroAvg.Precision += m.Precision / 2
		ev.MacroAvg.Recall += m.Recall / 2
		ev.MacroAvg.F1 += m.F1 / 2

		w := float64(m.Support) / float64(n)
		ev.WeightedAvg.Precision += m.Precision * w
		ev.WeightedAvg.Recall += m.Recall * w
		ev.WeightedAvg.F1 += m.F1 * w
	}
	ev.MacroAvg.Support = n
	ev.WeightedAvg.Support = n
	return ev
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
