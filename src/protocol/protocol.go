// Package protocol decodes client frames into the inbound message union and
// enforces the subscribe/unsubscribe schema.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"market-streamer/src/helpers"
	"market-streamer/src/models"

	"github.com/go-playground/validator/v10"
)

const (
	MinSymbols      = 1
	MaxSymbols      = 50
	MaxSymbolLength = 10
)

// -----------------------------------------------------------------------------

// Codec decodes and validates inbound frames. Safe for concurrent use.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Codec{validate: v}
}

// -----------------------------------------------------------------------------

// Decode turns a raw frame into one of SubscribeRequest, UnsubscribeRequest
// or UnknownMessage. Malformed JSON yields a *helpers.ProtocolError and an
// invalid payload a *helpers.ValidationError.
func (c *Codec) Decode(raw []byte) (models.Inbound, error) {
	var env models.MEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, helpers.NewProtocolError(models.CodeInvalidMessage, "message is not a valid JSON object", err)
	}

	switch env.Type {
	case models.TypeSubscribe:
		var req models.SubscribeRequest
		if err := c.decodeInto(raw, &req); err != nil {
			return nil, err
		}
		return req, nil

	case models.TypeUnsubscribe:
		var req models.UnsubscribeRequest
		if err := c.decodeInto(raw, &req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return models.UnknownMessage{Type: env.Type}, nil
	}
}

func (c *Codec) decodeInto(raw []byte, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return helpers.NewValidationError([]helpers.FieldError{{
				Field:   fieldName(typeErr.Field),
				Message: fmt.Sprintf("expected %s", typeErr.Type.String()),
			}})
		}
		return helpers.NewProtocolError(models.CodeInvalidMessage, "message is not a valid JSON object", err)
	}
	return c.Validate(dst)
}

// Validate checks a request struct against its schema tags.
func (c *Codec) Validate(req interface{}) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return helpers.NewProtocolError(models.CodeInternal, "validation failed", err)
	}

	fields := make([]helpers.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, helpers.FieldError{
			Field:   fieldName(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return helpers.NewValidationError(fields)
}

// -----------------------------------------------------------------------------

// fieldName strips the struct prefix: "SubscribeRequest.symbols[3]" -> "symbols[3]".
func fieldName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	isElement := strings.HasSuffix(fe.Namespace(), "]")

	switch fe.Tag() {
	case "required":
		return "is required"
	case "eq":
		return fmt.Sprintf("must be %q", fe.Param())
	case "min":
		if isElement {
			return "symbol must not be empty"
		}
		return fmt.Sprintf("must contain at least %s symbol(s)", fe.Param())
	case "max":
		if isElement {
			return fmt.Sprintf("symbol must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must contain at most %s symbols", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
