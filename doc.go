// Package tumoreval compares classifiers on the Wisconsin breast cancer
// diagnosis data.
//
// The pipeline loads the WDBC CSV (package dataset), splits it into a
// stratified 80/20 hold-out, balances the training side with SMOTE
// (imblearn/over_sampling), and trains every registered variant (decision
// tree, multi-layer perceptron, random forest) on the balanced set. Each
// variant is scored on the untouched test split and by stratified k-fold
// cross-validation (package evaluation), and the comparison is rendered as
// tables, CSV, JSON and charts (package report).
//
// # Quick Start
//
//	cfg := config.New()
//	ds, err := dataset.LoadCSV("data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds, err = ds.Select(cfg.Data.Features...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ev, err := evaluation.FromConfig(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, err := ev.Run(context.Background(), ds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.WriteTable(os.Stdout, rep)
//
// The same pipeline is available from the command line:
//
//	tumoreval evaluate --data data.csv --out report/
//	tumoreval describe --data data.csv
//
// Labels are encoded alphabetically: benign (B) is 0 and malignant (M) is 1.
// Every random step is seeded from evaluation.seed, so a run is reproducible
// end to end.
package tumoreval
