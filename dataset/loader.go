package dataset

import (
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

// Record is one row of the WDBC CSV. Only the columns used for
// classification are mapped; the others are ignored by the decoder.
// Values stay strings so that missing cells can be told apart from zero.
type Record struct {
	ID                string `csv:"id"`
	Diagnosis         string `csv:"diagnosis"`
	RadiusMean        string `csv:"radius_mean"`
	ConcavePointsMean string `csv:"concave points_mean"`
	PerimeterMean     string `csv:"perimeter_mean"`
	AreaMean          string `csv:"area_mean"`
}

func (r *Record) raw() []string {
	return []string{r.RadiusMean, r.ConcavePointsMean, r.PerimeterMean, r.AreaMean}
}

func (r *Record) key() string {
	return strings.Join(append([]string{r.ID, r.Diagnosis}, r.raw()...), "\x1f")
}

// LoadCSV reads a WDBC file from path.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset %s", path)
	}
	return ds, nil
}

// ReadCSV decodes WDBC rows, drops exact duplicate rows, rejects missing or
// non-finite measurements and encodes the diagnosis alphabetically
// (B=0, M=1). Every invalid row is reported, not just the first.
func ReadCSV(r io.Reader) (*Dataset, error) {
	var records []*Record
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(err, "decode csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV")
	}

	logger := log.GetLoggerWithName("dataset")

	seen := make(map[string]struct{}, len(records))
	var (
		rows       [][]float64
		diagnoses  []string
		duplicates int
		problems   *multierror.Error
	)
	for i, rec := range records {
		line := i + 2
		if _, dup := seen[rec.key()]; dup {
			duplicates++
			continue
		}
		seen[rec.key()] = struct{}{}

		values, err := parseRow(rec)
		diagnosis := strings.TrimSpace(rec.Diagnosis)
		if diagnosis == "" {
			problems = multierror.Append(problems, errors.Newf("line %d: missing diagnosis", line))
		}
		if err != nil {
			problems = multierror.Append(problems, errors.Wrapf(err, "line %d", line))
		}
		if err != nil || diagnosis == "" {
			continue
		}
		rows = append(rows, values)
		diagnoses = append(diagnoses, diagnosis)
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(err, "invalid dataset")
	}

	classNames := uniqueStrings(diagnoses)
	if len(classNames) != 2 {
		return nil, errors.NewValidationError("diagnosis", "need exactly two distinct values", classNames)
	}
	code := make(map[string]float64, len(classNames))
	for i, name := range classNames {
		code[name] = float64(i)
	}

	X := mat.NewDense(len(rows), len(DefaultFeatures), nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, row := range rows {
		X.SetRow(i, row)
		y.SetVec(i, code[diagnoses[i]])
	}

	ds, err := New(DefaultFeatures, X, y, WithClassNames(classNames...))
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		log.PhaseKey, log.PhaseLoading,
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.NumFeatures(),
		"duplicates_dropped", duplicates,
		"classes", classNames,
	)
	return ds, nil
}

func parseRow(rec *Record) ([]float64, error) {
	var problems *multierror.Error
	values := make([]float64, len(DefaultFeatures))
	for j, s := range rec.raw() {
		v, err := parseValue(s)
		if err != nil {
			problems = multierror.Append(problems, errors.Wrapf(err, "%s", DefaultFeatures[j]))
			continue
		}
		values[j] = v
	}
	return values, problems.ErrorOrNil()
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NULL":
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Newf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("not finite: %q", s)
	}
	return v, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, 2)
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
