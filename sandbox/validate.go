package sandbox

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

func IsLanguageSupported(language string) bool {
	return slices.Contains(SupportedLanguages, Language(language))
}

// Validate returns a validation failure for requests that must not reach a container.
func Validate(req Request) (Result, bool) {
	switch {
	case !IsLanguageSupported(string(req.Language)):
		return Failure(ErrorValidation, "Unsupported language"), false
	case strings.TrimSpace(req.Code) == "":
		return Failure(ErrorValidation, "Code cannot be empty"), false
	case utf8.RuneCountInString(req.Code) > MaxCodeLength:
		return Failure(ErrorValidation, fmt.Sprintf("Code is too large (max %d characters)", MaxCodeLength)), false
	case len(req.Tests) == 0:
		return Failure(ErrorValidation, "No tests available for execution"), false
	}
	return Result{}, true
}
