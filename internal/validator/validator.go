// Package validator provides custom validation functions for Gin's binding engine
// and turns binding failures into readable messages.
package validator

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"invoicer/internal/models"
)

const invalidBody = "Invalid request body"

var (
	once  sync.Once
	trans ut.Translator
)

// Register registers all custom validators and English messages with the Gin
// binding engine. Safe to call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

		_ = v.RegisterValidation("money", validateMoney)
		_ = v.RegisterValidation("payment_terms", validatePaymentTerms)
		_ = v.RegisterValidation("invoice_status", validateInvoiceStatus)
		_ = v.RegisterValidation("single_line", validateSingleLine)

		uni := ut.New(en.New(), en.New())
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerMessage(v, "money", "{0} must be a positive amount with at most 2 decimal places")
		registerMessage(v, "payment_terms", "{0} must be one of 'Net 1 day', 'Net 7 days', 'Net 14 days' or 'Net 30 days'")
		registerMessage(v, "invoice_status", "{0} must be one of 'Draft', 'Pending' or 'Paid'")
		registerMessage(v, "single_line", "{0} must not contain line breaks or control characters")
	})
}

// Messages converts a binding error into human-readable messages, one per
// failing field in declaration order. Malformed bodies yield a single
// "Invalid request body".
func Messages(err error) []string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if trans != nil {
				out = append(out, fe.Translate(trans))
			} else {
				out = append(out, fe.Error())
			}
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []string{fieldName(typeErr.Field) + " has an invalid type"}
	}

	return []string{invalidBody}
}

// First returns the first message for err.
func First(err error) string {
	msgs := Messages(err)
	if len(msgs) == 0 {
		return invalidBody
	}
	return msgs[0]
}

func registerMessage(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// fieldName keeps the leaf of a dotted JSON path such as "billTo.items.price".
func fieldName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive() && d.Equal(d.Truncate(2))
}

func validatePaymentTerms(fl validator.FieldLevel) bool {
	_, ok := models.ParsePaymentTerms(fl.Field().String())
	return ok
}

func validateInvoiceStatus(fl validator.FieldLevel) bool {
	_, ok := models.ParseInvoiceStatus(fl.Field().String())
	return ok
}
