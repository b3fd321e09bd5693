package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	validators "github.com/staynest/rental-backend/pkg/validator"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator engine
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = validators.Register(v)
	})
	return err
}
