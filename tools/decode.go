package tools

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/errcode"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report the wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses the JSON arguments of the tool into its args struct,
// and validates them.
// The result is one of *ResearchArgs, *AnalyzeArgs, *CollaborateArgs, *LatestInfoArgs.
func Decode(kind Kind, raw json.RawMessage) (any, error) {
	var args any
	switch kind {
	case KindResearch:
		args = new(ResearchArgs)
	case KindAnalyze:
		args = new(AnalyzeArgs)
	case KindCollaborate:
		args = new(CollaborateArgs)
	case KindGetLatestInfo:
		args = new(LatestInfoArgs)
	default:
		return nil, errcode.MethodNotFound("Unknown tool: %s", kind)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, args); err != nil {
			return nil, errcode.InvalidArgument("invalid arguments for %s: %s", kind, err.Error())
		}
	}

	if err := Validate(args); err != nil {
		return nil, err
	}
	return args, nil
}

// Validate checks the required arguments and the enum values.
func Validate(args any) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}

	var verr validator.ValidationErrors
	if !errors.As(err, &verr) || len(verr) == 0 {
		return errcode.InvalidArgument("invalid arguments: %s", err.Error())
	}

	fe := verr[0]
	switch fe.Tag() {
	case "required":
		return errcode.InvalidArgument("missing required argument: %s", fe.Field())
	case "oneof":
		return errcode.InvalidArgument("invalid value for %s: %q, expected one of: %s",
			fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return errcode.InvalidArgument("invalid argument %s: %s", fe.Field(), fe.Tag())
	}
}
