package engine

import (
	"fmt"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MaxNameLength is the longest folder or bookmark name accepted, in
// characters.
const MaxNameLength = 255

func nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, MaxNameLength),
	}
}

func urlRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		is.RequestURL,
	}
}

func parentRules() []validation.Rule {
	return []validation.Rule{
		validation.NilOrNotEmpty,
		validation.Min(int64(1)),
	}
}

func invalid(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
}

func validateCreateFolder(req *models.CreateFolderRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.ParentID, parentRules()...),
	))
}

func validateCreateBookmark(req *models.CreateBookmarkRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.URL, urlRules()...),
		validation.Field(&req.FolderID, parentRules()...),
	))
}

func validateUpdateFolder(req *models.UpdateFolderRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.ParentID, parentRules()...),
	))
}

func validateUpdateBookmark(req *models.UpdateBookmarkRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Name, nameRules()...),
		validation.Field(&req.URL, urlRules()...),
		validation.Field(&req.FolderID, parentRules()...),
	))
}

func validateMove(req *models.MoveRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.ItemType, validation.Required, validation.In(models.KindFolder, models.KindBookmark)),
		validation.Field(&req.ItemID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TargetFolderID, parentRules()...),
	))
}

func validateID(id int64) error {
	return invalid(validation.Validate(id, validation.Required, validation.Min(int64(1))))
}

func validateItem(id int64, kind models.ItemKind) error {
	return validateMove(&models.MoveRequest{ItemType: kind, ItemID: id})
}
