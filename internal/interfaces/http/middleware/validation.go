package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// portalDomainPattern accepts a host name with an optional port and nothing else,
// so the domain cannot smuggle a path, query or credentials into the upstream URL.
var portalDomainPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9.-]*[A-Za-z0-9])?(:[0-9]{1,5})?$`)

// portalMethodPattern accepts REST method names such as crm.deal.list
var portalMethodPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// SetupValidator configures the binding validator: JSON names in field errors and
// the portal_domain and portal_method tags.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("portal_domain", func(fl validator.FieldLevel) bool {
		return portalDomainPattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("portal_method", func(fl validator.FieldLevel) bool {
		return portalMethodPattern.MatchString(fl.Field().String())
	})
}

// ValidationFields lists the failing fields and tags of a validation error,
// e.g. "auth.domain:required"
func ValidationFields(err error) []string {
	var fields []string
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			ns := e.Namespace()
			if i := strings.IndexByte(ns, '.'); i >= 0 {
				ns = ns[i+1:]
			}
			fields = append(fields, ns+":"+e.Tag())
		}
	}
	return fields
}
