package metrics

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ClassScores holds the per-class quality metrics. Values are NaN when a
// class was never predicted or never present.
type ClassScores struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
}

// Report is the outcome of an evaluation.
type Report struct {
	Confusion *Confusion
	Classes   []ClassScores
	Correct   int
	Total     int
	Accuracy  float64
}

// Evaluate compares hard predictions against one-hot ground truth.
// A sample counts as correct only if its whole prediction row equals the
// truth row; the confusion table uses the argmax of each row.
func Evaluate(preds, truth mat.Matrix) (*Report, error) {
	pr, pc := preds.Dims()
	tr, tc := truth.Dims()
	if pr != tr || pc != tc {
		return nil, fmt.Errorf("%w: predictions %dx%d, truth %dx%d", ErrShapeMismatch, pr, pc, tr, tc)
	}
	if pr == 0 {
		return nil, fmt.Errorf("%w: nothing to evaluate", ErrShapeMismatch)
	}

	conf := NewConfusion(pc)
	correct := 0
	prow := make([]float64, pc)
	trow := make([]float64, tc)
	for i := 0; i < pr; i++ {
		mat.Row(prow, i, preds)
		mat.Row(trow, i, truth)
		conf.Add(floats.MaxIdx(prow), floats.MaxIdx(trow))
		if floats.Equal(prow, trow) {
			correct++
		}
	}

	report := &Report{
		Confusion: conf,
		Classes:   make([]ClassScores, pc),
		Correct:   correct,
		Total:     pr,
		Accuracy:  float64(correct) / float64(pr),
	}
	for j := 0; j < pc; j++ {
		report.Classes[j] = classScores(conf, j)
	}
	return report, nil
}

// No zero-division guard: 0/0 yields NaN.
func classScores(c *Confusion, j int) ClassScores {
	tp := c.Count(j, j)
	fp := c.Predicted(j) - tp
	fn := c.Actual(j) - tp
	prec := tp / (tp + fp)
	rec := tp / (tp + fn)
	return ClassScores{
		Class:     j,
		Precision: prec,
		Recall:    rec,
		F1:        2 * ((prec * rec) / (prec + rec)),
	}
}

// Print writes the report in the pipeline's plain-text format.
func (r *Report) Print(w io.Writer, algorithm string) {
	fmt.Fprintf(w, "Classifier algorithm: %s\n", algorithm)
	for _, s := range r.Classes {
		fmt.Fprintf(w, "%d\tprecision: %v\trecall: %v\tf1-score: %v\n", s.Class, s.Precision, s.Recall, s.F1)
	}
	fmt.Fprintf(w, "Classifier accuracy: %f%%\n", r.Accuracy*100)
	fmt.Fprintln(w)
}
