// Package theme synthesizes invitation theme documents with a text model and
// checks them before they are rendered.
package theme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"inviteai/internal/domain"
)

// Document is the theme contract renderers consume.
type Document struct {
	Name        string      `json:"name" validate:"required,max=80"`
	Description string      `json:"description,omitempty" validate:"max=400"`
	Colors      Colors      `json:"colors"`
	Typography  Typography  `json:"typography"`
	Decorations Decorations `json:"decorations"`
	Animation   Animation   `json:"animation"`
	Sections    []Section   `json:"sections" validate:"required,min=1,max=16,unique=Type,dive"`
}

type Colors struct {
	Primary    string `json:"primary" validate:"required,hexcolor"`
	Secondary  string `json:"secondary" validate:"required,hexcolor"`
	Accent     string `json:"accent" validate:"required,hexcolor"`
	Background string `json:"background" validate:"required,hexcolor"`
	Text       string `json:"text" validate:"required,hexcolor"`
}

type Typography struct {
	Heading      string `json:"heading" validate:"required,max=60"`
	Body         string `json:"body" validate:"required,max=60"`
	HeadingClass string `json:"headingClass,omitempty" validate:"max=300"`
	BodyClass    string `json:"bodyClass,omitempty" validate:"max=300"`
}

type Decorations struct {
	Divider         string `json:"divider,omitempty" validate:"omitempty,oneof=none line dots floral symbol-with-lines"`
	Ornament        string `json:"ornament,omitempty" validate:"omitempty,oneof=none leaves flowers rings hearts geometric"`
	BackgroundClass string `json:"backgroundClass,omitempty" validate:"max=300"`
}

type Animation struct {
	Intensity string `json:"intensity,omitempty" validate:"omitempty,oneof=none subtle lively"`
	Animation string `json:"animation,omitempty" validate:"omitempty,oneof=none fade-in slide-up zoom-in float"`
}

type Section struct {
	Type        string `json:"type" validate:"required,oneof=hero couple event gallery story countdown rsvp guestbook gift closing"`
	Enabled     bool   `json:"enabled"`
	Layout      string `json:"layout" validate:"required,oneof=centered split stacked grid carousel full-bleed"`
	Alignment   string `json:"alignment,omitempty" validate:"omitempty,oneof=left center right"`
	ImageShape  string `json:"imageShape,omitempty" validate:"omitempty,oneof=none circle arch rounded square"`
	ButtonStyle string `json:"buttonStyle,omitempty" validate:"omitempty,oneof=solid outline pill ghost"`
	Animation   string `json:"animation,omitempty" validate:"omitempty,oneof=none fade-in slide-up zoom-in float"`
	ClassName   string `json:"className,omitempty" validate:"max=400"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Decode parses raw strictly into a Document and runs structural validation.
// Errors wrap domain.ErrStructuralValidation.
func Decode(raw []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStructuralValidation, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", domain.ErrStructuralValidation)
	}
	if err := structValidator().Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStructuralValidation, describe(err))
	}
	return &doc, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Document.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
