/*
 *	Copyright 2025 The digits authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package loader

import (
	"fmt"

	"github.com/edgevision/digits/corpus"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveClassHistogram writes a bar chart of the per-class sample counts of the
// batch to path (format chosen by extension, e.g. ".png").
func SaveClassHistogram(b *corpus.Batch, numClasses int, path string) error {
	dist := b.ClassDistribution(numClasses)
	values := make(plotter.Values, numClasses)
	names := make([]string, numClasses)
	for class := 0; class < numClasses; class++ {
		values[class] = float64(dist[corpus.Label(class)])
		names[class] = fmt.Sprintf("%d", class)
	}

	p := plot.New()
	p.Title.Text = "Class distribution"
	p.Y.Label.Text = "Samples"
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "building class histogram")
	}
	p.Add(bars)
	p.NominalX(names...)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving class histogram to %q", path)
	}
	return nil
}
