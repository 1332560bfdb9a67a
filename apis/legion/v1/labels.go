package v1

// LabelPrefix is the reserved prefix for every relationship-tracking
// label this operator writes onto children it manages.
const LabelPrefix = "legion.legion-platform.org"

// Reserved labels written onto every child object the operator creates.
// The operator unconditionally overwrites these five on apply; a
// handler-provided desired child may set other labels freely.
const (
	// LabelOwnerID is the owning resource's UID, stable across renames.
	LabelOwnerID = LabelPrefix + "/owner-id"

	// LabelOwnerType is the owning resource's Kind.
	LabelOwnerType = LabelPrefix + "/owner-type"

	// LabelOwnerName is the owning resource's Name (display only).
	LabelOwnerName = LabelPrefix + "/owner-name"

	// LabelSubName is the child's logical role within its owner, e.g.
	// "training-pod" or "checkout-secret".
	LabelSubName = LabelPrefix + "/sub-name"

	// LabelChildRevision is the content hash of the desired child at
	// apply time, used to detect drift without re-diffing full specs.
	LabelChildRevision = LabelPrefix + "/child-revision"
)

// Annotations written on VCS-owned secrets for human inspection.
const (
	AnnotationURI        = LabelPrefix + "/uri"
	AnnotationDefaultRef = LabelPrefix + "/defaultRef"
)

// Kind names of the owner resources this operator reconciles.
const (
	KindVCS           = "VCS"
	KindModelTraining = "ModelTraining"
)

// ReservedLabels lists the five labels above, in a stable order, for
// code that needs to iterate them (e.g. the hash exclusion set).
var ReservedLabels = []string{
	LabelOwnerID,
	LabelOwnerType,
	LabelOwnerName,
	LabelSubName,
	LabelChildRevision,
}
