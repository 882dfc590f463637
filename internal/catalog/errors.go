package catalog

import "errors"

var (
	// ErrUnresolvedReference marks a dependency row naming an untracked
	// object. It is benign: such rows are skipped.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrMissingExtensionParent is returned when a unit is recorded as an
	// extension member but the owning extension is not in the catalog.
	ErrMissingExtensionParent = errors.New("could not find parent extension")

	// ErrUnsupportedPartitionConstraint is returned for partition layouts
	// that cannot be recombined, such as multi-level external partitions.
	ErrUnsupportedPartitionConstraint = errors.New("unsupported partition layout")
)
