package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/tumoreval/dataset"
	"github.com/YuminosukeSato/tumoreval/evaluation"
)

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteTable renders the metric comparison followed by one confusion
// summary per variant.
func WriteTable(w io.Writer, rep *evaluation.Report) error {
	names := classLabels(rep)
	pos := names[0]
	if rep.PositiveLabel == 1 {
		pos = names[1]
	}

	if _, err := fmt.Fprintf(w, "Hold-out: %d train (%d after SMOTE), %d test; positive class: %s\n\n",
		rep.Summary.TrainSamples, rep.Summary.Balanced, rep.Summary.TestSamples, pos); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Variant", "Accuracy", "Precision", "Recall", "F1", "CV mean", "CV std"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, res := range rep.Results {
		table.Append([]string{
			res.Variant,
			f4(res.Accuracy),
			f4(res.Precision),
			f4(res.Recall),
			f4(res.F1),
			f4(res.CVMean),
			f4(res.CVStd),
		})
	}
	table.Render()

	if best, ok := rep.Best(); ok {
		if _, err := fmt.Fprintf(w, "Best: %s (F1 %s, CV mean %s)\n", best.Variant, f4(best.F1), f4(best.CVMean)); err != nil {
			return err
		}
	}

	for _, res := range rep.Results {
		if _, err := fmt.Fprintf(w, "\n%s confusion matrix (rows: true, columns: predicted)\n", res.Variant); err != nil {
			return err
		}
		cm := ConfusionMatrix(res)
		ct := tablewriter.NewWriter(w)
		ct.SetHeader([]string{"", names[0], names[1]})
		ct.SetAutoFormatHeaders(false)
		for i := 0; i < 2; i++ {
			ct.Append([]string{
				names[i],
				strconv.Itoa(int(cm.At(i, 0))),
				strconv.Itoa(int(cm.At(i, 1))),
			})
		}
		ct.Render()
	}
	return nil
}

// WriteDescribe renders class counts and per-class feature statistics.
func WriteDescribe(w io.Writer, s *dataset.Summary) error {
	if _, err := fmt.Fprintf(w, "Samples: %d\n", s.Samples); err != nil {
		return err
	}
	counts := tablewriter.NewWriter(w)
	counts.SetHeader([]string{"Diagnosis", "Label", "Count", "Share"})
	counts.SetAutoFormatHeaders(false)
	for _, c := range s.Classes {
		counts.Append([]string{
			DisplayName(c.Name),
			strconv.FormatFloat(c.Label, 'g', -1, 64),
			strconv.Itoa(c.Count),
			fmt.Sprintf("%.1f%%", 100*float64(c.Count)/float64(s.Samples)),
		})
	}
	counts.Render()

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	features := tablewriter.NewWriter(w)
	features.SetHeader([]string{"Feature", "Diagnosis", "Count", "Mean", "Std", "Min", "Max"})
	features.SetAutoFormatHeaders(false)
	features.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, f := range s.Features {
		features.Append([]string{
			f.Feature,
			DisplayName(f.Class),
			strconv.Itoa(f.Count),
			f4(f.Mean),
			f4(f.Std),
			f4(f.Min),
			f4(f.Max),
		})
	}
	features.Render()
	return nil
}
