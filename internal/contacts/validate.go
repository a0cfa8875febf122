package contacts

import (
	"net/http"
	"net/mail"
	"strings"
)

const (
	maxNameLen  = 255
	maxPhoneLen = 20
	maxEmailLen = 100

	// MaxPhotoBytes caps photo uploads at 2MB, matching the public contract.
	MaxPhotoBytes = 2 << 20
)

// photoExtensions maps accepted raster image content types to storage extensions.
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// CreateInput carries the raw fields for a new contact. Photo is the optional
// binary payload; nil or empty means no photo was supplied.
type CreateInput struct {
	Name  string
	Phone string
	Email string
	Photo []byte
}

// UpdateInput carries a partial field set. Nil pointers mean the field was
// absent from the request and must be left unchanged. A present but empty
// Email clears the field.
type UpdateInput struct {
	Name  *string
	Phone *string
	Email *string
	Photo []byte
}

// validateCreate checks all create fields and returns a field→messages map,
// empty on success.
func validateCreate(in CreateInput) map[string][]string {
	errs := make(map[string][]string)

	validateName(errs, in.Name)
	validatePhone(errs, in.Phone)
	if in.Email != "" {
		validateEmail(errs, in.Email)
	}
	if len(in.Photo) > 0 {
		validatePhoto(errs, in.Photo)
	}

	return errs
}

// validateUpdate checks only the fields present in the input.
func validateUpdate(in UpdateInput) map[string][]string {
	errs := make(map[string][]string)

	if in.Name != nil {
		validateName(errs, *in.Name)
	}
	if in.Phone != nil {
		validatePhone(errs, *in.Phone)
	}
	if in.Email != nil && *in.Email != "" {
		validateEmail(errs, *in.Email)
	}
	if len(in.Photo) > 0 {
		validatePhoto(errs, in.Photo)
	}

	return errs
}

func validateName(errs map[string][]string, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		errs["name"] = append(errs["name"], "name is required")
		return
	}
	if len(name) > maxNameLen {
		errs["name"] = append(errs["name"], "name must be at most 255 characters")
	}
}

func validatePhone(errs map[string][]string, phone string) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		errs["phone"] = append(errs["phone"], "phone is required")
		return
	}
	if len(phone) > maxPhoneLen {
		errs["phone"] = append(errs["phone"], "phone must be at most 20 characters")
	}
}

func validateEmail(errs map[string][]string, email string) {
	if len(email) > maxEmailLen {
		errs["email"] = append(errs["email"], "email must be at most 100 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = append(errs["email"], "email must be a valid email address")
	}
}

func validatePhoto(errs map[string][]string, photo []byte) {
	if len(photo) > MaxPhotoBytes {
		errs["photo"] = append(errs["photo"], "photo must not exceed 2MB")
	}
	if _, ok := photoExtensions[http.DetectContentType(photo)]; !ok {
		errs["photo"] = append(errs["photo"], "photo must be a jpeg, png, or gif image")
	}
}

// photoExt returns the storage extension for an already-validated payload.
func photoExt(photo []byte) string {
	return photoExtensions[http.DetectContentType(photo)]
}
