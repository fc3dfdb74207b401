package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CustomInputKind enumerates the supported kinds of custom application form
// fields. The set is closed: adding a kind means extending the enum and the
// switch in ValueText, not subclassing.
type CustomInputKind string

const (
	CustomInputText        CustomInputKind = "text"
	CustomInputCheckbox    CustomInputKind = "checkbox"
	CustomInputSelect      CustomInputKind = "select"
	CustomInputMultiSelect CustomInputKind = "multiselect"
	CustomInputFile        CustomInputKind = "file"
	CustomInputDate        CustomInputKind = "date"
	CustomInputDateTime    CustomInputKind = "datetime"
)

// CustomInputValue holds one user's answer to a custom application form
// field. Exactly one payload field is meaningful for a given Kind.
type CustomInputValue struct {
	InputID   int
	UserUID   string
	Kind      CustomInputKind
	Text      string    // text, select, file (stored path)
	Checked   bool      // checkbox
	Selected  []string  // multiselect
	Timestamp time.Time // date, datetime
}

// ValueText renders the value for grids and exports.
func (v *CustomInputValue) ValueText() string {
	switch v.Kind {
	case CustomInputText, CustomInputSelect, CustomInputFile:
		return v.Text
	case CustomInputCheckbox:
		return strconv.FormatBool(v.Checked)
	case CustomInputMultiSelect:
		return strings.Join(v.Selected, ", ")
	case CustomInputDate:
		return v.Timestamp.Format("2006-01-02")
	case CustomInputDateTime:
		return v.Timestamp.Format("2006-01-02 15:04")
	default:
		return ""
	}
}

// Validate rejects values whose payload does not match their kind.
func (v *CustomInputValue) Validate() error {
	switch v.Kind {
	case CustomInputText, CustomInputSelect, CustomInputFile,
		CustomInputCheckbox, CustomInputMultiSelect:
		return nil
	case CustomInputDate, CustomInputDateTime:
		if v.Timestamp.IsZero() {
			return fmt.Errorf("custom input %d: %s value without a timestamp", v.InputID, v.Kind)
		}
		return nil
	default:
		return fmt.Errorf("custom input %d: unknown kind %q", v.InputID, v.Kind)
	}
}
