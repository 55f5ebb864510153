// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package coef implements a command to draw
// a coefficient plot of a fitted regression.
package coef

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/js-arias/blind"
	"github.com/js-arias/command"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var Command = &command.Command{
	Usage: "coef [-o|--output <png-file>] <coefficient-file>",
	Short: "draw a coefficient plot",
	Long: `
Command coef reads a coefficient table, as written by the commands 'dielvox
fit gls' and 'dielvox fit count', and draws each coefficient estimate with
its 95% confidence interval, with a reference line at zero.

The argument of the command is the name of the coefficient file.

The plot is saved as a PNG file with the name given by the flag --output, or
-o, "coef.png" by default. The intercept is not drawn.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "coef.png", "")
	c.Flags().StringVar(&output, "o", "coef.png", "")
}

type coefficient struct {
	term     string
	estimate float64
	stdErr   float64
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting coefficient file")
	}

	coefs, err := readCoefficients(args[0])
	if err != nil {
		return err
	}
	if len(coefs) == 0 {
		return fmt.Errorf("file %q without coefficients", args[0])
	}

	p := plot.New()
	p.X.Label.Text = "estimate"

	names := make([]string, 0, len(coefs))
	for _, cf := range coefs {
		names = append(names, cf.term)
	}
	p.NominalY(names...)

	p.Add(&coefPlot{coefs: coefs})

	if err := p.Save(6*vg.Inch, vg.Length(1+len(coefs))*vg.Inch/2, output); err != nil {
		return err
	}
	fmt.Fprintf(c.Stdout(), "plot saved as %q\n", output)
	return nil
}

func readCoefficients(name string) ([]coefficient, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tsv := csv.NewReader(f)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("on file %q: header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[strings.ToLower(h)] = i
	}
	for _, h := range []string{"term", "estimate", "stderr"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	var coefs []coefficient
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		term := row[fields["term"]]
		if term == "(intercept)" {
			continue
		}
		est, err := strconv.ParseFloat(row[fields["estimate"]], 64)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: field %q: %v", name, ln, "estimate", err)
		}
		se, err := strconv.ParseFloat(row[fields["stderr"]], 64)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: field %q: %v", name, ln, "stderr", err)
		}
		coefs = append(coefs, coefficient{term: term, estimate: est, stdErr: se})
	}
	return coefs, nil
}

// A coefPlot draws each coefficient
// as a point with its 95% confidence interval.
type coefPlot struct {
	coefs []coefficient
}

// DataRange implements the plot.DataRanger interface.
func (cp *coefPlot) DataRange() (xMin, xMax, yMin, yMax float64) {
	xMin = 0
	xMax = 0
	for _, cf := range cp.coefs {
		if lo := cf.estimate - 1.96*cf.stdErr; lo < xMin {
			xMin = lo
		}
		if hi := cf.estimate + 1.96*cf.stdErr; hi > xMax {
			xMax = hi
		}
	}
	return xMin, xMax, -0.5, float64(len(cp.coefs)) - 0.5
}

// Plot implements the plot.Plotter interface.
func (cp *coefPlot) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	// zero reference
	c.SetLineStyle(draw.LineStyle{Color: blind.Gradient(0.5), Width: vg.Points(0.5), Dashes: []vg.Length{vg.Points(3)}})
	var ref vg.Path
	ref.Move(vg.Point{X: trX(0), Y: trY(-0.5)})
	ref.Line(vg.Point{X: trX(0), Y: trY(float64(len(cp.coefs)) - 0.5)})
	c.Stroke(ref)

	c.SetLineStyle(draw.LineStyle{Color: blind.Gradient(1), Width: vg.Points(1.5)})
	for i, cf := range cp.coefs {
		y := trY(float64(i))

		var bar vg.Path
		bar.Move(vg.Point{X: trX(cf.estimate - 1.96*cf.stdErr), Y: y})
		bar.Line(vg.Point{X: trX(cf.estimate + 1.96*cf.stdErr), Y: y})
		c.Stroke(bar)

		var pt vg.Path
		pt.Move(vg.Point{X: trX(cf.estimate) + vg.Points(2.5), Y: y})
		pt.Arc(vg.Point{X: trX(cf.estimate), Y: y}, vg.Points(2.5), 0, 2*math.Pi)
		pt.Close()
		c.Fill(pt)
	}
}
