package middleware

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgvalidator "github.com/jwalitptl/clinic-portal/pkg/validator"
)

var registerOnce sync.Once

// SetupValidation installs the portal's custom tags on gin's binding engine,
// so ShouldBindJSON checks pesel, phone and notblank like the services do.
func SetupValidation() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		err = pkgvalidator.Register(v)
	})
	return err
}
