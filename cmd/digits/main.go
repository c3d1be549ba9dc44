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

// digits assembles the multi-source digit corpus and prints the resulting
// train/validation/test partition. With no configuration file it runs the
// builtin MNIST pipeline.
package main

import (
	"flag"
	"fmt"

	"github.com/edgevision/digits/config"
	"github.com/edgevision/digits/loader"
	"github.com/edgevision/digits/split"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagConfig    = flag.String("config", "", "Pipeline configuration file (YAML). Empty runs the builtin MNIST pipeline.")
	flagDataDir   = flag.String("data", "", "Overrides the configured cache directory for builtin corpus downloads.")
	flagHistogram = flag.String("histogram", "", "If set, writes a class-distribution bar chart of the combined corpus to this file.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg := config.Default()
	if *flagConfig != "" {
		cfg = must.M1(config.FromYAMLFile(*flagConfig))
	}
	if *flagDataDir != "" {
		cfg.DataDir = *flagDataDir
	}
	must.M(cfg.Validate())

	l := must.M1(loader.New(cfg))
	combined := must.M1(l.LoadAll())
	fmt.Println(l.Report())

	if *flagHistogram != "" {
		must.M(loader.SaveClassHistogram(combined, cfg.NumClasses, *flagHistogram))
		klog.Infof("class histogram written to %s", *flagHistogram)
	}

	combined.Shuffle(cfg.ShuffleSeed)
	result := must.M1(split.Dataset(combined, cfg.NumClasses,
		cfg.TrainingPercentage, cfg.ValidationSplit, cfg.ShuffleSeed))
	fmt.Printf("train=%d validation=%d test=%d images of shape %s\n",
		result.Train.Len(), result.Validation.Len(), result.Test.Len(), result.Train.Shape())
}
