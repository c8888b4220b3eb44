package types

// Node labels follow the PROV standard node kinds.
const (
	LabelAgent      = "agent"
	LabelActivity   = "activity"
	LabelEntity     = "entity"
	LabelCollection = "collection"
)

// validNodeLabels is the set of recognized node labels.
var validNodeLabels = map[string]bool{
	LabelAgent:      true,
	LabelActivity:   true,
	LabelEntity:     true,
	LabelCollection: true,
}

// IsValidNodeLabel reports whether the given string is a recognized node label.
func IsValidNodeLabel(label string) bool {
	return validNodeLabels[label]
}

// Edge labels carry PROV relation semantics.
const (
	EdgeWasDerivedFrom    = "wasDerivedFrom"
	EdgeUsed              = "used"
	EdgeWasGeneratedBy    = "wasGeneratedBy"
	EdgeHadMember         = "hadMember"
	EdgeWasAssociatedWith = "wasAssociatedWith"
	EdgeAnnotated         = "_annotated"
)

// Node represents a provenance graph node. key is the storage-level
// identifier, after identifier-codec hashing if the logical name was
// over-long.
type Node struct {
	Key        string // Storage key, unique within the resource.
	Resource   string // Owning resource (one provenance graph).
	CreatedSeq int64  // Monotonic creation sequence within the backend.
	Label      string // One of the Label constants.
}

// Edge represents a directed edge in the provenance graph. The triple
// (FromKey, ToKey, Label) is unique per resource; duplicates are ignored
// on insert.
type Edge struct {
	Seq      string // Row id, UUID v7, generated on first insert.
	Resource string // Owning resource.
	FromKey  string // Source node key.
	ToKey    string // Destination node key.
	Label    string // One of the Edge constants.
}
