package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/jmylchreest/calcprobe/internal/probe"
)

// junitXML is the <testsuites> document.
type junitXML struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// WriteJUnit renders the results as JUnit XML with one testsuite per
// check suite. WARN and INFO results pass and carry their details in
// system-out.
func WriteJUnit(w io.Writer, r *Report) error {
	doc := buildJUnit(r)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing JUnit report: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JUnit report: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing JUnit report: %w", err)
	}
	return nil
}

func buildJUnit(r *Report) junitXML {
	doc := junitXML{
		Name: "calcprobe " + r.RunID,
		Time: seconds(r.Duration()),
	}

	index := make(map[string]int)
	for _, res := range r.Results {
		i, ok := index[res.Suite]
		if !ok {
			i = len(doc.TestSuites)
			index[res.Suite] = i
			doc.TestSuites = append(doc.TestSuites, junitTestSuite{
				Name:      res.Suite,
				Timestamp: res.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		suite := &doc.TestSuites[i]

		tc := junitTestCase{
			Name:      res.Name,
			ClassName: "calcprobe." + res.Suite,
			Time:      seconds(res.Duration),
		}
		switch res.Status {
		case probe.StatusFail:
			tc.Failure = &junitFailure{Message: res.Details, Type: string(res.Status), Value: res.Line()}
			suite.Failures++
			doc.Failures++
		case probe.StatusSkip:
			tc.Skipped = &junitSkipped{Message: res.Details}
			suite.Skipped++
			doc.Skipped++
		case probe.StatusWarn, probe.StatusInfo:
			tc.SystemOut = res.Line()
		}

		suite.TestCases = append(suite.TestCases, tc)
		suite.Tests++
		suite.Time += tc.Time
		doc.Tests++
	}
	return doc
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
