package ml

import (
	"fmt"
	"strings"
)

// ClassMetrics holds precision, recall and F1 for one class or an average.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes predictions on a held-out split.
type Evaluation struct {
	Accuracy    float64        `json:"accuracy"`
	Samples     int            `json:"samples"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
}

// Evaluate compares true and predicted labels. labels names the classes in
// code order.
func Evaluate(yTrue, yPred []int, labels []string) (Evaluation, error) {
	if len(yTrue) != len(yPred) {
		return Evaluation{}, fmt.Errorf("evaluate: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Evaluation{}, fmt.Errorf("evaluate: no samples")
	}

	k := len(labels)
	tp := make([]int, k)
	predicted := make([]int, k)
	support := make([]int, k)
	correct := 0
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			return Evaluation{}, fmt.Errorf("evaluate: label out of range at row %d", i)
		}
		support[t]++
		predicted[p]++
		if t == p {
			tp[t]++
			correct++
		}
	}

	ev := Evaluation{
		Accuracy: float64(correct) / float64(len(yTrue)),
		Samples:  len(yTrue),
		Classes:  make([]ClassMetrics, k),
		MacroAvg: ClassMetrics{Label: "macro avg", Support: len(yTrue)},
		WeightedAvg: ClassMetrics{
			Label:   "weighted avg",
			Support: len(yTrue),
		},
	}
	for c := 0; c < k; c++ {
		m := ClassMetrics{
			Label:     labels[c],
			Precision: ratio(tp[c], predicted[c]),
			Recall:    ratio(tp[c], support[c]),
			Support:   support[c],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		ev.Classes[c] = m

		w := float64(support[c]) / float64(len(yTrue))
		ev.MacroAvg.Precision += m.Precision / float64(k)
		ev.MacroAvg.Recall += m.Recall / float64(k)
		ev.MacroAvg.F1 += m.F1 / float64(k)
		ev.WeightedAvg.Precision += m.Precision * w
		ev.WeightedAvg.Recall += m.Recall * w
		ev.WeightedAvg.F1 += m.F1 * w
	}
	return ev, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Report renders the evaluation as a plain-text classification report.
func (e Evaluation) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range e.Classes {
		fmt.Fprintf(&sb, "%14s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", e.Accuracy, e.Samples)
	for _, c := range []ClassMetrics{e.MacroAvg, e.WeightedAvg} {
		fmt.Fprintf(&sb, "%14s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return sb.String()
}
