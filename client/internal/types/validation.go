package types

import (
	"strings"

	"golang.org/x/text/language"

	apierrors "github.com/storynest/storynest/client/internal/errors"
)

// ------------------------------
// Validation
// ------------------------------

// ValidateIDPresent rejects empty or whitespace-only identifiers, which would
// otherwise produce a request against the collection path.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return &apierrors.ValidationError{Field: field, Reason: "must not be empty"}
	}
	if strings.ContainsAny(id, "/?#") {
		return &apierrors.ValidationError{Field: field, Reason: "must not contain '/', '?' or '#'"}
	}
	return nil
}

// ValidateLanguage checks that tag is a well-formed BCP 47 language tag.
func ValidateLanguage(tag string) error {
	if _, err := language.Parse(tag); err != nil {
		return &apierrors.ValidationError{Field: "preferred_language", Reason: err.Error()}
	}
	return nil
}

// ValidateCreateKid checks the required fields of a create request.
func ValidateCreateKid(req CreateKidRequest) error {
	if err := ValidateIDPresent(req.UserID, "user_id"); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return &apierrors.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if req.Age != nil && *req.Age < 0 {
		return &apierrors.ValidationError{Field: "age", Reason: "must not be negative"}
	}
	if req.PreferredLanguage != nil {
		return ValidateLanguage(*req.PreferredLanguage)
	}
	return nil
}

// ValidateUpdateKid checks a partial update.
func ValidateUpdateKid(req UpdateKidRequest) error {
	if req.Empty() {
		return &apierrors.ValidationError{Field: "update", Reason: "no fields supplied"}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return &apierrors.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if req.Age != nil && *req.Age < 0 {
		return &apierrors.ValidationError{Field: "age", Reason: "must not be negative"}
	}
	if req.PreferredLanguage != nil {
		return ValidateLanguage(*req.PreferredLanguage)
	}
	return nil
}

// ValidateUpdateStory checks a partial story update.
func ValidateUpdateStory(req UpdateStoryRequest) error {
	if req.Empty() {
		return &apierrors.ValidationError{Field: "update", Reason: "no fields supplied"}
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return &apierrors.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}

// ValidateGenerateStory checks a generation request.
func ValidateGenerateStory(req GenerateStoryRequest) error {
	if err := ValidateIDPresent(req.KidID, "kid_id"); err != nil {
		return err
	}
	if req.Language != nil {
		if _, err := language.Parse(*req.Language); err != nil {
			return &apierrors.ValidationError{Field: "language", Reason: err.Error()}
		}
	}
	if req.Length != nil {
		switch *req.Length {
		case "short", "medium", "long":
		default:
			return &apierrors.ValidationError{Field: "length", Reason: "must be short, medium or long"}
		}
	}
	return nil
}
