package provider

import (
	"fmt"
	"slices"
)

// ValidateCapabilities checks if provider capabilities are valid and consistent
func ValidateCapabilities(caps ProviderCapabilities) error {
	if len(caps.Kinds) == 0 {
		return fmt.Errorf("provider must support at least one entity kind")
	}

	for _, kind := range caps.Kinds {
		if !slices.Contains(AllKinds, kind) {
			return fmt.Errorf("unknown entity kind %q", kind)
		}
	}

	for _, it := range caps.ImageTypes {
		if it != ImageTypePrimary && it != ImageTypeBackdrop {
			return fmt.Errorf("unknown image type %q", it)
		}
	}

	return nil
}

// HasKind reports whether the capabilities include kind.
func (c ProviderCapabilities) HasKind(kind EntityKind) bool {
	return slices.Contains(c.Kinds, kind)
}

// HasImageType reports whether the capabilities include the image slot.
func (c ProviderCapabilities) HasImageType(it ImageType) bool {
	return slices.Contains(c.ImageTypes, it)
}
