package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/response"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type questionsRequest struct {
	UserInfo model.Profile `json:"userInfo"`
}

type analyzeRequest struct {
	UserInfo  model.Profile    `json:"userInfo"`
	Answers   map[string]int   `json:"answers" validate:"required,min=1,dive,min=1,max=5"`
	Questions []model.Question `json:"questions" validate:"required,min=1,max=50,dive"`
}

type authPayload struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

type tokenPayload struct {
	AccessToken string `json:"accessToken"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errs.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON body", errs.ErrValidation)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func fieldErrors(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	out := response.FieldErrors{}
	for _, fe := range ve {
		name := fe.Namespace()
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		out[name] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
