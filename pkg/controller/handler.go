package controller

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/legion-platform/legion-operator/pkg/merge"
)

// ChildKind is one of the child resource kinds a Handler declares it
// manages; the engine lists observed children of each declared kind by
// label selector before every dispatch.
type ChildKind struct {
	GVR  schema.GroupVersionResource
	Kind string
}

// DesiredState is what a Handler wants the cluster to look like after
// this reconcile: the owner's status fields, and the full set of
// children that should exist. A nil or empty Children (as on_delete
// returns) removes every observed child.
type DesiredState struct {
	Status   map[string]interface{}
	Children []merge.Child
}

// Handler is the kind-specific logic a Controller delegates to: it
// translates one owner resource into the object graph that should
// exist for it. The engine owns every lifecycle concern (watching,
// loading observed children, merging, applying, status patching);
// handlers only compute desired state from (owner, observed children),
// reading other resources where they need to (the ModelTraining
// handler fetches the referenced VCS) but never writing to the cluster.
//
// This is the "deep inheritance of controllers" replaced by a flat,
// single-level interface per spec §9: no handler calls another
// handler, and the engine never subclasses itself per owner kind.
type Handler interface {
	// ChildKinds declares every child kind this handler may produce.
	ChildKinds() []ChildKind

	// OnCreate computes the desired state for a newly observed owner.
	// A nil *DesiredState is a no-op: the event is acknowledged without
	// touching the cluster.
	OnCreate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error)

	// OnUpdate computes the desired state for an owner whose spec changed.
	OnUpdate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error)

	// OnDelete computes the desired state after an owner was deleted.
	OnDelete(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error)
}

// BaseHandler gives concrete handlers the spec-mandated defaults:
// on_create falls through to on_update, and on_delete empties the
// child set. Embed it and override what differs.
type BaseHandler struct {
	// OnUpdateFunc is delegated to by both OnCreate and OnUpdate.
	OnUpdateFunc func(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error)
}

func (b BaseHandler) OnCreate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error) {
	return b.OnUpdateFunc(ctx, owner, observed)
}

func (b BaseHandler) OnUpdate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error) {
	return b.OnUpdateFunc(ctx, owner, observed)
}

func (b BaseHandler) OnDelete(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*DesiredState, error) {
	return &DesiredState{Children: nil}, nil
}
