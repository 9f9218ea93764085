/*
Copyright 2026 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package junit renders coverage summaries as junit XML for testgrid.
package junit

import (
	"encoding/xml"
	"io"

	"k8s.io/gcovage/pkg/calc"
)

// Property is a name/value pair attached to a test case.
type Property struct {
	XMLName xml.Name `xml:"property"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

// Properties wraps the property list.
type Properties struct {
	PropertyList []Property `xml:"property"`
}

// Failure marks a test case whose coverage is below the threshold.
type Failure struct {
	Message string `xml:"message,attr"`
}

// TestCase is one file, directory or the overall summary.
type TestCase struct {
	XMLName    xml.Name   `xml:"testcase"`
	ClassName  string     `xml:"class_name,attr"`
	Name       string     `xml:"name,attr"`
	Time       string     `xml:"time,attr"`
	Failure    *Failure   `xml:"failure,omitempty"`
	Properties Properties `xml:"properties"`
}

// Testsuite is the document root.
type Testsuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	TestCases []TestCase `xml:"testcase"`
}

func newTestCase(cov *calc.Coverage, threshold float32) TestCase {
	tc := TestCase{
		ClassName: "gcov_coverage",
		Name:      cov.Name,
		Time:      "0",
		Properties: Properties{PropertyList: []Property{
			{Name: "coverage", Value: cov.Percentage()},
		}},
	}
	if cov.IsCoverageLow(threshold) {
		tc.Failure = &Failure{Message: "coverage " + cov.Percentage() + "% is below the threshold"}
	}
	return tc
}

func (ts *Testsuite) add(tc TestCase) {
	ts.TestCases = append(ts.TestCases, tc)
	ts.Tests++
	if tc.Failure != nil {
		ts.Failures++
	}
}

// ToTestsuite builds the testsuite: the OVERALL case first, then one case
// per file, then one per directory.
func ToTestsuite(covList *calc.CoverageList, threshold float32) *Testsuite {
	ts := &Testsuite{}
	covList.Summarize()
	overall := covList.Coverage
	overall.Name = "OVERALL"
	ts.add(newTestCase(&overall, threshold))
	for i := range covList.Group {
		ts.add(newTestCase(&covList.Group[i], threshold))
	}
	for _, dir := range covList.Dirs() {
		ts.add(newTestCase(&covList.Subset(dir).Coverage, threshold))
	}
	return ts
}

// Write writes the testsuite for covList to w.
func Write(w io.Writer, covList *calc.CoverageList, threshold float32) error {
	output, err := xml.MarshalIndent(ToTestsuite(covList, threshold), "", "    ")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(output); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
