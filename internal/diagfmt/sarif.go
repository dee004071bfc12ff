package diagfmt

import (
	"encoding/json"
	"io"
	"slices"

	"frontcore/internal/diag"
	"frontcore/internal/source"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations,omitempty"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
}

type sarifLocation struct {
	Physical sarifPhysical `json:"physicalLocation"`
	Message  *sarifMessage `json:"message,omitempty"`
}

type sarifPhysical struct {
	Artifact sarifArtifact `json:"artifactLocation"`
	Region   sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
	ByteOffset  uint32 `json:"byteOffset"`
	ByteLength  uint32 `json:"byteLength"`
}

func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	}
	return "note"
}

func sarifLocate(span source.Span, fs *source.FileSet, meta SarifRunMeta) (sarifLocation, bool) {
	loc := makeLocation(span, fs, meta.Paths, true)
	if loc.File == "" {
		return sarifLocation{}, false
	}
	return sarifLocation{Physical: sarifPhysical{
		Artifact: sarifArtifact{URI: loc.File},
		Region: sarifRegion{
			StartLine:   loc.StartLine,
			StartColumn: loc.StartCol,
			EndLine:     loc.EndLine,
			EndColumn:   loc.EndCol,
			ByteOffset:  loc.StartByte,
			ByteLength:  loc.EndByte - loc.StartByte,
		},
	}}, true
}

// Sarif writes diagnostics as a SARIF 2.1.0 log with a single run.
func Sarif(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, meta SarifRunMeta) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: meta.ToolName, Version: meta.ToolVersion}},
		Results: make([]sarifResult, 0, len(diags)),
	}
	success := true
	var codes []diag.Code
	for _, d := range diags {
		if d.Severity == diag.SevError {
			success = false
		}
		if !slices.Contains(codes, d.Code) {
			codes = append(codes, d.Code)
		}
		res := sarifResult{
			RuleID:  d.Code.ID(),
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
		}
		if loc, ok := sarifLocate(d.Primary, fs, meta); ok {
			res.Locations = []sarifLocation{loc}
		}
		for _, n := range d.Notes {
			if loc, ok := sarifLocate(n.Span, fs, meta); ok {
				loc.Message = &sarifMessage{Text: n.Msg}
				res.RelatedLocations = append(res.RelatedLocations, loc)
			}
		}
		run.Results = append(run.Results, res)
	}
	slices.Sort(codes)
	for _, c := range codes {
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{ID: c.ID(), ShortDescription: sarifMessage{Text: c.Title()}})
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: success}}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}})
}
