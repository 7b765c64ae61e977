// Package plotting renders survival curves with gonum/plot.
package plotting

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/survival"
)

// Default size of a new plotting surface.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

type options struct {
	durationCol string
	eventCol    string
	groupCol    string
	weightCol   string
	plot        *plot.Plot
	band        bool
	censors     bool
}

// Option configures PlotKaplanMeier and Curves.
type Option func(*options)

func WithDurationCol(name string) Option { return func(o *options) { o.durationCol = name } }
func WithEventCol(name string) Option    { return func(o *options) { o.eventCol = name } }
func WithGroupCol(name string) Option    { return func(o *options) { o.groupCol = name } }

// WithWeightCol draws weighted Kaplan-Meier curves, e.g. with IP weights.
func WithWeightCol(name string) Option { return func(o *options) { o.weightCol = name } }

// WithPlot draws onto an existing surface instead of a new one.
func WithPlot(p *plot.Plot) Option { return func(o *options) { o.plot = p } }

// WithConfidenceBand adds dashed 95% pointwise bands around each curve.
func WithConfidenceBand() Option { return func(o *options) { o.band = true } }

// WithCensorMarks marks censored observations on each curve.
func WithCensorMarks() Option { return func(o *options) { o.censors = true } }

// Curve is the Kaplan-Meier estimate of one group.
type Curve struct {
	Label    string
	Value    float64
	Survival *survival.SurvivalFunction
}

// Curves computes one Kaplan-Meier estimate per distinct value of the group
// column, in the order the values first appear.
func Curves(t *data.Table, opts ...Option) ([]Curve, error) {
	o := newOptions(opts)
	return curves(t, o)
}

func newOptions(opts []Option) options {
	o := options{
		durationCol: data.ColTime,
		eventCol:    data.ColEvent,
		groupCol:    data.ColTreatment,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func curves(t *data.Table, o options) ([]Curve, error) {
	durations, err := t.Column(o.durationCol)
	if err != nil {
		return nil, err
	}
	events, err := t.Column(o.eventCol)
	if err != nil {
		return nil, err
	}
	var weights []float64
	if o.weightCol != "" {
		if weights, err = t.Column(o.weightCol); err != nil {
			return nil, err
		}
	}
	groups, err := t.GroupBy(o.groupCol)
	if err != nil {
		return nil, err
	}

	out := make([]Curve, 0, len(groups))
	for _, g := range groups {
		var w []float64
		if weights != nil {
			w = data.Select(weights, g.Rows)
		}
		sf, err := survival.KaplanMeier(data.Select(durations, g.Rows), data.Select(events, g.Rows), w)
		if err != nil {
			return nil, fmt.Errorf("group %v: %w", g.Value, err)
		}
		out = append(out, Curve{
			Label:    strconv.FormatFloat(g.Value, 'g', -1, 64),
			Value:    g.Value,
			Survival: sf,
		})
	}
	return out, nil
}

// PlotKaplanMeier draws one Kaplan-Meier step curve per distinct value of
// the group column (treatment by default), in the order the values first
// appear, on shared axes. The legend labels each curve with its group value.
func PlotKaplanMeier(t *data.Table, opts ...Option) (*plot.Plot, error) {
	o := newOptions(opts)
	cs, err := curves(t, o)
	if err != nil {
		return nil, err
	}

	p := o.plot
	if p == nil {
		p = plot.New()
	}
	p.Title.Text = "Kaplan-Meier curves"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Survival probability"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Legend.Top = false
	p.Legend.Left = true
	p.Legend.YOffs = vg.Points(4)

	for k, cv := range cs {
		sf := cv.Survival
		c := plotutil.Color(k)
		line, err := stepLine(sf.Time, sf.Survival)
		if err != nil {
			return nil, err
		}
		line.Color = c
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(cv.Label, line)

		if o.band {
			for _, b := range [][]float64{sf.Lower, sf.Upper} {
				l, err := stepLine(sf.Time, b)
				if err != nil {
					return nil, err
				}
				l.Color = c
				l.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
				p.Add(l)
			}
		}
		if o.censors {
			marks, err := censorMarks(sf)
			if err != nil {
				return nil, err
			}
			if marks != nil {
				marks.GlyphStyle.Color = c
				p.Add(marks)
			}
		}
	}
	return p, nil
}

// Save writes p at the default size; the format follows the file extension.
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}

func stepLine(x, y []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.StepStyle = plotter.PostStep
	return l, nil
}

func censorMarks(sf *survival.SurvivalFunction) (*plotter.Scatter, error) {
	var pts plotter.XYs
	for k := range sf.Time {
		if sf.Censored[k] > 0 {
			pts = append(pts, plotter.XY{X: sf.Time[k], Y: sf.Survival[k]})
		}
	}
	if len(pts) == 0 {
		return nil, nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Shape = draw.PlusGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	return s, nil
}
