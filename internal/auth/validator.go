// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// Password and name limits.
const (
	MinPasswordLength = 8
	MaxFullNameLength = 255
)

// EmailDomainPattern requires a dotted domain on top of the email format,
// so addresses such as "a@localhost" are rejected.
const EmailDomainPattern = `^[^@]+@[^@]+[.][^@.]+$`

// RegisterInput is the normalized registration payload.
type RegisterInput struct {
	FullName *string `json:"fullName,omitempty" jsonschema:"maxLength=255"`
	Email    string  `json:"email" jsonschema:"format=email,pattern=^[^@]+@[^@]+[.][^@.]+$"`
	Password string  `json:"password" jsonschema:"minLength=8"`
}

// LoginInput is the normalized login payload.
type LoginInput struct {
	Email    string `json:"email" jsonschema:"format=email,pattern=^[^@]+@[^@]+[.][^@.]+$"`
	Password string `json:"password" jsonschema:"minLength=8"`
}

// EmailProbe reports whether an email is already registered without
// creating a record.
type EmailProbe interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// Validator checks raw request payloads against the registration and login
// field specifications.
type Validator struct {
	register *jschema.Schema
	login    *jschema.Schema
	probe    EmailProbe
	logger   *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithEmailProbe enables the registration uniqueness pre-check.
func WithEmailProbe(probe EmailProbe) ValidatorOption {
	return func(v *Validator) {
		v.probe = probe
	}
}

// WithValidatorLogger sets the logger used when the uniqueness probe fails.
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator compiles the payload schemas.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	register, err := compileSchema("register.json", &RegisterInput{})
	if err != nil {
		return nil, err
	}
	login, err := compileSchema("login.json", &LoginInput{})
	if err != nil {
		return nil, err
	}
	v := &Validator{
		register: register,
		login:    login,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ValidateRegister checks a registration payload. The email keeps its
// original case; repositories fold it for uniqueness. The uniqueness probe runs
// only once the email is otherwise valid, and its failure is logged and
// ignored: the store's unique constraint is authoritative.
func (v *Validator) ValidateRegister(ctx context.Context, body []byte) (*RegisterInput, error) {
	doc, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	fields := validateDocument(v.register, doc)

	var in RegisterInput
	if err := remarshal(doc, &in); err != nil && len(fields) == 0 {
		return nil, malformedRequest(err.Error())
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		in.FullName = &name
		if name == "" {
			in.FullName = nil
		}
	}

	if _, bad := fields["email"]; !bad && v.probe != nil {
		taken, err := v.probe.EmailTaken(ctx, in.Email)
		switch {
		case err != nil:
			v.logger.Warn("email uniqueness probe failed", "error", err)
		case taken:
			fields.Add("email", "email has already been taken")
		}
	}

	if len(fields) > 0 {
		return nil, validationFailed(fields)
	}
	return &in, nil
}

// ValidateLogin checks a login payload.
func (v *Validator) ValidateLogin(body []byte) (*LoginInput, error) {
	doc, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	if fields := validateDocument(v.login, doc); len(fields) > 0 {
		return nil, validationFailed(fields)
	}

	var in LoginInput
	if err := remarshal(doc, &in); err != nil {
		return nil, malformedRequest(err.Error())
	}
	in.Email = NormalizeEmail(in.Email)
	return &in, nil
}

// PayloadSchemas returns the JSON Schema documents for the register and
// login payloads, keyed by file name.
func PayloadSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, 2)
	for name, target := range map[string]any{
		"register.schema.json": &RegisterInput{},
		"login.schema.json":    &LoginInput{},
	} {
		data, err := reflectSchema(target)
		if err != nil {
			return nil, oops.With("schema", name).Wrap(err)
		}
		out[name] = data
	}
	return out, nil
}

func reflectSchema(target any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	return json.Marshal(r.Reflect(target))
}

func compileSchema(name string, target any) (*jschema.Schema, error) {
	data, err := reflectSchema(target)
	if err != nil {
		return nil, oops.With("schema", name).Wrap(err)
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.With("schema", name).Wrap(err)
	}

	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(name, doc); err != nil {
		return nil, oops.With("schema", name).Wrap(err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, oops.With("schema", name).Wrap(err)
	}
	return sch, nil
}

// decodePayload parses body into a JSON object. Null members are dropped
// so that an explicit null reads the same as an absent field, and the email
// is trimmed before its grammar is checked.
func decodePayload(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, malformedRequest("empty body")
	}
	raw, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, malformedRequest("invalid JSON")
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, malformedRequest("body is not a JSON object")
	}
	for k, val := range doc {
		if val == nil {
			delete(doc, k)
		}
	}
	if email, ok := doc["email"].(string); ok {
		doc["email"] = strings.TrimSpace(email)
	}
	return doc, nil
}

func validateDocument(sch *jschema.Schema, doc map[string]any) FieldErrors {
	fields := FieldErrors{}
	err := sch.Validate(doc)
	if err == nil {
		return fields
	}
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		fields.Add("_", "payload could not be validated")
		return fields
	}
	collectViolations(ve, fields)
	return fields
}

func collectViolations(ve *jschema.ValidationError, fields FieldErrors) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectViolations(cause, fields)
		}
		return
	}

	field := "_"
	if len(ve.InstanceLocation) > 0 {
		field = ve.InstanceLocation[0]
	}

	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		for _, missing := range k.Missing {
			fields.Add(missing, missing+" is required")
		}
	case *kind.MinLength:
		fields.Add(field, fmt.Sprintf("%s must be at least %d characters", field, k.Want))
	case *kind.MaxLength:
		fields.Add(field, fmt.Sprintf("%s must be at most %d characters", field, k.Want))
	case *kind.Format:
		if k.Want == "email" {
			fields.Add(field, field+" must be a valid email address")
			return
		}
		fields.Add(field, fmt.Sprintf("%s must be a valid %s", field, k.Want))
	case *kind.Pattern:
		if field == "email" {
			fields.Add(field, field+" must be a valid email address")
			return
		}
		fields.Add(field, field+" has an invalid format")
	case *kind.Type:
		fields.Add(field, fmt.Sprintf("%s must be of type %s", field, strings.Join(k.Want, " or ")))
	default:
		fields.Add(field, field+" is invalid")
	}
}

// remarshal converts a validated document into its typed payload.
func remarshal(doc map[string]any, target any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
