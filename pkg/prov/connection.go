package prov

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/lineage/internal/dedup"
	"github.com/mesh-intelligence/lineage/pkg/ident"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

// Tuple is a schema-bearing stream tuple: ordered field names with their
// values. Fields and Values correspond by position.
type Tuple struct {
	Fields []string
	Values []any
}

// Property labels used by the orchestrator.
const (
	propStartTime = "startTime"
	propEndTime   = "endTime"
	propLocation  = "location"
	propCode      = "code"
)

// StoreStreamTuple creates (or reuses) the ENTITY node for one stream
// tuple and writes every schema field as a property, positionally indexed.
// index is the tuple's 1-based position in the stream; the stored key is
// 0-based. The stream's field schema is recorded once per resource.
// Returns the entity's qualified token.
func (c *Connection) StoreStreamTuple(stream string, index int, tuple Tuple) (string, error) {
	key := c.localKey(ident.EntityID(stream, index-1))

	setID, _, err := c.engine.ExtendEventSet(dedup.NodeEvent(key, types.LabelEntity), "")
	if err != nil {
		return "", err
	}

	for i, field := range tuple.Fields {
		value, err := types.ValueOf(tuple.Values[i])
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field, err)
		}
		setID, _, err = c.engine.ExtendEventSet(dedup.PropEvent(key, field, value, i), setID)
		if err != nil {
			return "", err
		}
	}

	if err := c.recordStreamSchema(stream, tuple.Fields); err != nil {
		return "", err
	}
	return c.codec.Qualify(ident.EntityID(stream, index-1)), nil
}

// recordStreamSchema persists the ordered field names of a stream. The
// (resource, stream) pair is unique, so repeated tuples are free.
func (c *Connection) recordStreamSchema(stream string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	value := fields[0]
	for _, f := range fields[1:] {
		value += "," + f
	}
	return c.store.AddSchema(c.resource, c.localKey(ident.EntityID(stream, -1)), stream, value)
}

// StoreActivity creates (or reuses) the ACTIVITY node keyed by the
// content-hashed activity id, records its start and end timestamps, and
// associates it with the current user's agent node. Identical (name,
// location) pairs always collapse onto the same activity.
func (c *Connection) StoreActivity(name string, start, end time.Time, location string) (string, error) {
	key := ident.ActivityID(name, location)

	setID, _, err := c.engine.ExtendEventSet(dedup.NodeEvent(key, types.LabelActivity), "")
	if err != nil {
		return "", err
	}
	setID, _, err = c.engine.ExtendEventSet(
		dedup.PropEvent(key, propStartTime, types.TimestampValue(start), types.NoIndex), setID)
	if err != nil {
		return "", err
	}
	setID, _, err = c.engine.ExtendEventSet(
		dedup.PropEvent(key, propEndTime, types.TimestampValue(end), types.NoIndex), setID)
	if err != nil {
		return "", err
	}
	if location != "" {
		_, _, err = c.engine.ExtendEventSet(
			dedup.PropEvent(key, propLocation, types.StringValue(location), types.NoIndex), setID)
		if err != nil {
			return "", err
		}
	}

	_, _, err = c.engine.ExtendEventSetEdge(
		dedup.EdgeEvent(key, c.agentKey, types.EdgeWasAssociatedWith), "")
	if err != nil {
		return "", err
	}
	return c.codec.Qualify(key), nil
}

// StoreCode stores a code text as a content-hashed ACTIVITY node, with the
// same dedup guarantee as activities: identical text maps to one node.
func (c *Connection) StoreCode(text string) (string, error) {
	key := ident.CodeID(text)

	setID, _, err := c.engine.ExtendEventSet(dedup.NodeEvent(key, types.LabelActivity), "")
	if err != nil {
		return "", err
	}
	_, _, err = c.engine.ExtendEventSet(
		dedup.PropEvent(key, propCode, types.StringValue(text), types.NoIndex), setID)
	if err != nil {
		return "", err
	}
	return c.codec.Qualify(key), nil
}

// StoreWindowAndInputs creates a COLLECTION node for a window and a
// hadMember edge from it to each input token. Returns the window's token.
func (c *Connection) StoreWindowAndInputs(operator string, windowID int, inputTokens []string) (string, error) {
	key := c.localKey(ident.WindowID(operator, windowID))

	setID, _, err := c.engine.ExtendEventSet(dedup.NodeEvent(key, types.LabelCollection), "")
	if err != nil {
		return "", err
	}
	for _, token := range inputTokens {
		member, err := c.codec.LocalPart(token)
		if err != nil {
			return "", err
		}
		setID, _, err = c.engine.ExtendEventSetEdge(
			dedup.EdgeEvent(key, member, types.EdgeHadMember), setID)
		if err != nil {
			return "", err
		}
	}
	return c.codec.Qualify(ident.WindowID(operator, windowID)), nil
}

// StoreWindowedResult records one windowed aggregation step: the result
// tuple, the window collection over its inputs, the aggregating activity,
// and the derivation edges between them. This is the one call stream
// operators make per aggregation step.
func (c *Connection) StoreWindowedResult(stream string, index int, tuple Tuple,
	operator string, start, end time.Time, inputTokens []string) (string, error) {

	resultToken, err := c.StoreStreamTuple(stream, index, tuple)
	if err != nil {
		return "", err
	}
	windowToken, err := c.StoreWindowAndInputs(operator, index, inputTokens)
	if err != nil {
		return "", err
	}
	activityToken, err := c.StoreActivity(operator, start, end, "")
	if err != nil {
		return "", err
	}

	result, _ := c.codec.LocalPart(resultToken)
	window, _ := c.codec.LocalPart(windowToken)
	activity, _ := c.codec.LocalPart(activityToken)

	edges := []dedup.Event{
		dedup.EdgeEvent(result, window, types.EdgeWasDerivedFrom),
		dedup.EdgeEvent(activity, window, types.EdgeUsed),
		dedup.EdgeEvent(result, activity, types.EdgeWasGeneratedBy),
	}
	setID := ""
	for _, ev := range edges {
		setID, _, err = c.engine.ExtendEventSetEdge(ev, setID)
		if err != nil {
			return "", err
		}
	}
	if err := c.store.Flush(); err != nil {
		return "", err
	}
	return resultToken, nil
}

// StoreAnnotations creates one ENTITY node per annotation key, linked to
// the annotated node with an _annotated edge; the key/value pair is the
// annotation node's sole property. Keys are processed in sorted order so
// repeated calls are deterministic. Returns the annotation tokens.
func (c *Connection) StoreAnnotations(token string, annotations map[string]any) ([]string, error) {
	parent, err := c.codec.LocalPart(token)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(annotations))
	for k := range annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		value, err := types.ValueOf(annotations[k])
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", k, err)
		}

		annKey := c.localKey(parent + "._a_" + k)
		setID, _, err := c.engine.ExtendEventSet(dedup.NodeEvent(annKey, types.LabelEntity), "")
		if err != nil {
			return nil, err
		}
		setID, _, err = c.engine.ExtendEventSetEdge(
			dedup.EdgeEvent(parent, annKey, types.EdgeAnnotated), setID)
		if err != nil {
			return nil, err
		}
		_, _, err = c.engine.ExtendEventSet(
			dedup.PropEvent(annKey, k, value, types.NoIndex), setID)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, c.codec.Qualify(annKey))
	}
	return tokens, nil
}

// GetStreamSchema returns the ordered field names recorded for a stream.
func (c *Connection) GetStreamSchema(stream string) ([]string, error) {
	value, err := c.store.GetSchema(c.resource, stream)
	if err != nil {
		return nil, err
	}
	return strings.Split(value, ","), nil
}

// GetNode returns the full typed property map of the node behind token.
func (c *Connection) GetNode(token string) (map[string]types.Value, error) {
	key, err := c.codec.LocalPart(token)
	if err != nil {
		return nil, err
	}
	return c.store.GetProvenanceData(c.resource, key)
}

// Traversal helpers: thin label-filtered wrappers over the adjacency
// queries. All return lists of qualified tokens.

// GetSourceEntities returns what token was derived from.
func (c *Connection) GetSourceEntities(token string) ([]string, error) {
	return c.connectedFrom(token, types.EdgeWasDerivedFrom)
}

// GetDerivedEntities returns what was derived from token.
func (c *Connection) GetDerivedEntities(token string) ([]string, error) {
	return c.connectedTo(token, types.EdgeWasDerivedFrom)
}

// GetParentEntities returns the collections token is a member of.
func (c *Connection) GetParentEntities(token string) ([]string, error) {
	return c.connectedTo(token, types.EdgeHadMember)
}

// GetChildEntities returns the members of the collection behind token.
func (c *Connection) GetChildEntities(token string) ([]string, error) {
	return c.connectedFrom(token, types.EdgeHadMember)
}

// GetCreatingActivities returns the activities that generated token.
func (c *Connection) GetCreatingActivities(token string) ([]string, error) {
	return c.connectedFrom(token, types.EdgeWasGeneratedBy)
}

// GetActivityOutputs returns the entities generated by the activity.
func (c *Connection) GetActivityOutputs(token string) ([]string, error) {
	return c.connectedTo(token, types.EdgeWasGeneratedBy)
}

// GetActivityInputs returns the collections the activity used.
func (c *Connection) GetActivityInputs(token string) ([]string, error) {
	return c.connectedFrom(token, types.EdgeUsed)
}

// GetAnnotations returns the annotation entities attached to token.
func (c *Connection) GetAnnotations(token string) ([]string, error) {
	return c.connectedFrom(token, types.EdgeAnnotated)
}

// GetStreamInputs returns the member tuples of the windows that the given
// stream tuple was derived from.
func (c *Connection) GetStreamInputs(stream string, index int) ([]string, error) {
	token := c.codec.Qualify(ident.EntityID(stream, index-1))
	windows, err := c.GetSourceEntities(token)
	if err != nil {
		return nil, err
	}
	var inputs []string
	for _, w := range windows {
		members, err := c.GetChildEntities(w)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, members...)
	}
	return inputs, nil
}

// GetStreamProducers returns the activities that generated the given
// stream tuple.
func (c *Connection) GetStreamProducers(stream string, index int) ([]string, error) {
	return c.GetCreatingActivities(c.codec.Qualify(ident.EntityID(stream, index-1)))
}

func (c *Connection) connectedTo(token, label string) ([]string, error) {
	key, err := c.codec.LocalPart(token)
	if err != nil {
		return nil, err
	}
	keys, err := c.store.GetConnectedTo(c.resource, key, label)
	if err != nil {
		return nil, err
	}
	return c.qualifyAll(keys), nil
}

func (c *Connection) connectedFrom(token, label string) ([]string, error) {
	key, err := c.codec.LocalPart(token)
	if err != nil {
		return nil, err
	}
	keys, err := c.store.GetConnectedFrom(c.resource, key, label)
	if err != nil {
		return nil, err
	}
	return c.qualifyAll(keys), nil
}

// qualifyAll wraps storage keys back into tokens. Stored keys are at most
// digest length by construction, so Qualify never re-hashes them.
func (c *Connection) qualifyAll(keys []string) []string {
	tokens := make([]string, len(keys))
	for i, k := range keys {
		tokens[i] = c.codec.Qualify(k)
	}
	return tokens
}
