// Package safename derives the names of per-project database objects.
// Identifiers in DDL cannot be bound as parameters, so every dynamic name is
// formatted from a validated positive integer through a fixed template;
// caller-supplied text never reaches an identifier position.
package safename

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	viewPrefix  = "parcels_agbs_project_"
	indexPrefix = "idx_parcels_agbs_project_"
)

// SafeName holds the canonical view and index names for one project.
type SafeName struct {
	ProjectID int64
	View      string
	Index     string
}

// InvalidIdentifierError reports a project id or object name that cannot be
// mapped to a safe database identifier. It is never retried.
type InvalidIdentifierError struct {
	Input  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Input, e.Reason)
}

// ForProject validates projectID and returns the canonical names.
func ForProject(projectID int64) (SafeName, error) {
	if projectID <= 0 {
		return SafeName{}, &InvalidIdentifierError{
			Input:  strconv.FormatInt(projectID, 10),
			Reason: "project id must be a positive integer",
		}
	}
	id := strconv.FormatInt(projectID, 10)
	return SafeName{
		ProjectID: projectID,
		View:      viewPrefix + id,
		Index:     indexPrefix + id,
	}, nil
}

// ProjectID recovers the project id from a well-formed view name. Names that
// do not match the template exactly (wrong prefix, leading zeros, trailing
// garbage) are rejected so that reconciliation never acts on objects this
// service did not name.
func ProjectID(viewName string) (int64, error) {
	suffix, ok := strings.CutPrefix(viewName, viewPrefix)
	if !ok || suffix == "" {
		return 0, &InvalidIdentifierError{Input: viewName, Reason: "not a project view name"}
	}
	if suffix[0] == '0' {
		return 0, &InvalidIdentifierError{Input: viewName, Reason: "non-canonical project id"}
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id <= 0 {
		return 0, &InvalidIdentifierError{Input: viewName, Reason: "non-canonical project id"}
	}
	return id, nil
}
