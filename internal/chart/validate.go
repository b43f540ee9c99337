package chart

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"ukenergy/energyflow/internal/sankey"
)

// DefaultBalanceEpsilon is the largest per-stage flow sum still treated as balanced
const DefaultBalanceEpsilon = 1e-3

var (
	// validate is shared; validator caches struct metadata
	validate *validator.Validate

	chartNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

func init() {
	validate = validator.New()

	validate.RegisterValidation("sankey_color", func(fl validator.FieldLevel) bool {
		_, err := sankey.ParseColor(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("chart_name", func(fl validator.FieldLevel) bool {
		return chartNameRe.MatchString(fl.Field().String())
	})

	// report fields by their file names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// Severity grades an issue
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one finding about a chart definition
type Issue struct {
	Severity Severity `json:"severity"`
	Stage    int      `json:"stage"` // -1 for chart-level issues
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) Error() string {
	where := "chart"
	if i.Stage >= 0 {
		where = fmt.Sprintf("stage %d", i.Stage)
	}
	if i.Field != "" {
		where += " " + i.Field
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, where, i.Message)
}

// Issues is a list of findings
type Issues []Issue

func (is Issues) Error() string {
	if len(is) == 0 {
		return "no issues"
	}
	msgs := make([]string, len(is))
	for i, issue := range is {
		msgs[i] = issue.Error()
	}
	return strings.Join(msgs, "; ")
}

// Errors returns only error-severity issues
func (is Issues) Errors() Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors reports whether any issue is an error
func (is Issues) HasErrors() bool { return len(is.Errors()) > 0 }

// Validate checks field ranges and enumerations
func (c *Chart) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	issues := make(Issues, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Stage:    stageFromNamespace(fe.Namespace()),
			Field:    fe.Field(),
			Message:  fieldMessage(fe),
		})
	}
	return issues
}

// stageFromNamespace extracts N from "Chart.stages[N].field"
func stageFromNamespace(ns string) int {
	var n int
	i := strings.Index(ns, "stages[")
	if i < 0 {
		return -1
	}
	if _, err := fmt.Sscanf(ns[i:], "stages[%d]", &n); err != nil {
		return -1
	}
	return n
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have exactly %s elements", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "sankey_color":
		return fmt.Sprintf("unrecognised colour %q", fe.Value())
	case "chart_name":
		return "must be lowercase letters, digits, '.', '_' or '-'"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Check runs field validation plus the data-integrity checks that need the
// whole chart: sequence lengths, stage balance and anchor references.
func Check(c *Chart, epsilon float64) Issues {
	var issues Issues
	if err := c.Validate(); err != nil {
		var verrs Issues
		if errors.As(err, &verrs) {
			issues = append(issues, verrs...)
		} else {
			issues = append(issues, Issue{Severity: SeverityError, Stage: -1, Message: err.Error()})
		}
	}

	tol := c.Tolerance()
	for i, s := range c.Stages {
		issues = append(issues, checkStage(c, i, s, epsilon, tol)...)
	}
	return issues
}

func checkStage(c *Chart, i int, s Stage, epsilon, tol float64) Issues {
	var issues Issues
	n := len(s.Flows)
	add := func(sev Severity, field, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Stage: i, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(s.Labels) != 0 && len(s.Labels) != n {
		add(SeverityError, "labels", "%d labels for %d flows", len(s.Labels), n)
	}
	if len(s.Orientations) != 0 && len(s.Orientations) != n {
		add(SeverityError, "orientations", "%d orientations for %d flows", len(s.Orientations), n)
	}
	if k := len(s.PathLengths); k > 1 && k != n {
		add(SeverityError, "path_lengths", "%d path lengths for %d flows", k, n)
	}
	if math.Mod(s.Rotation, 90) != 0 {
		add(SeverityError, "rotation", "rotation %g is not a multiple of 90", s.Rotation)
	}

	var sum float64
	for _, f := range s.Flows {
		sum += f
	}
	if math.Abs(sum) > epsilon {
		add(SeverityWarning, "flows", "flows sum to %.6g, outside balance tolerance %g", sum, epsilon)
	}

	if s.Prior == nil {
		if len(s.Connect) != 0 {
			add(SeverityWarning, "connect", "connect has no effect without prior")
		}
		return issues
	}
	if s.Rotation != 0 {
		add(SeverityWarning, "rotation", "rotation is ignored on an anchored stage")
	}

	p := *s.Prior
	if p >= i {
		add(SeverityError, "prior", "prior %d must refer to an earlier stage", p)
		return issues
	}
	if len(s.Connect) != 0 && len(s.Connect) != 2 {
		// already reported by Validate
		return issues
	}
	conn := s.ConnectPair()
	prior := c.Stages[p]
	if conn[0] < 0 || conn[0] >= len(prior.Flows) {
		add(SeverityError, "connect", "index %d is out of range for stage %d with %d flows", conn[0], p, len(prior.Flows))
		return issues
	}
	if conn[1] < 0 || conn[1] >= n {
		add(SeverityError, "connect", "index %d is out of range for %d flows", conn[1], n)
		return issues
	}
	from, to := prior.Flows[conn[0]], s.Flows[conn[1]]
	if math.Abs(from) < tol {
		add(SeverityError, "connect", "flow %d of stage %d is zero and cannot be connected", conn[0], p)
	}
	if math.Abs(to) < tol {
		add(SeverityError, "connect", "flow %d is zero and cannot be connected", conn[1])
	}
	if e := from + to; math.Abs(e) >= tol {
		add(SeverityError, "connect", "connected flows %g and %g are not equal and opposite (sum %g)", from, to, e)
	}
	return issues
}
