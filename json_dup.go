package jsongraph

import (
	"errors"
	"io"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

// DetectDuplicateKeys scans data and returns one *Error per duplicated object
// key, up to maxIssues (0 means no limit). Only the syntax option is used.
func DetectDuplicateKeys(data []byte, opt ReadOpt, maxIssues int) ([]*Error, error) {
	syn := opt.Syntax
	if syn == SyntaxAuto {
		syn = DetectSyntax(data)
	}
	var found []*Error
	src := eng.WrapWithEnforcement(sourceFor(data, syn), eng.EnforceOptions{
		OnDuplicate: eng.DupWarn,
		IssueSink:   func(e *issue.Error) { found = append(found, e) },
	})
	for maxIssues <= 0 || len(found) < maxIssues {
		if _, err := src.NextToken(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return found, toError(err)
		}
	}
	if maxIssues > 0 && len(found) > maxIssues {
		found = found[:maxIssues]
	}
	return found, nil
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case SeverityError:
		return eng.DupError
	case SeverityWarn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}
