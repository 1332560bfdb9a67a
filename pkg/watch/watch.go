/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package watch implements the long-lived list-then-watch stream
// described by spec §4.1: a full list on start (replayed as synthetic
// ADDED events), a watch opened from the list's resourceVersion, and
// automatic re-list whenever the watch is invalidated.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8swatch "k8s.io/apimachinery/pkg/watch"

	"github.com/legion-platform/legion-operator/pkg/k8sclient"
)

// EventKind mirrors spec §4.1's event vocabulary.
type EventKind string

const (
	Added    EventKind = "ADDED"
	Modified EventKind = "MODIFIED"
	Deleted  EventKind = "DELETED"
	Error    EventKind = "ERROR"
)

// Event is one item produced by a ResourceWatch.
type Event struct {
	Kind   EventKind
	Object *unstructured.Unstructured

	// Err carries the decode/transport failure for Kind == Error events.
	Err error
}

// ResourceWatch streams events for one GroupVersionResource, cluster
// wide (namespace is always "" on the underlying List/Watch calls).
// Consumers must be idempotent: a relist re-emits ADDED for every
// currently-existing item, including ones already seen.
type ResourceWatch struct {
	client *k8sclient.ResourceClient
	name   string // used only for log lines
}

// New returns a watch over the given resource client.
func New(client *k8sclient.ResourceClient, name string) *ResourceWatch {
	return &ResourceWatch{client: client, name: name}
}

// Run streams events onto the returned channel until ctx is cancelled,
// at which point the channel is closed. A failed list or a failed watch
// open is emitted as an Error event and retried after a one-second
// pause; no transport error is treated as terminal, so the channel is
// never closed while ctx is still live.
func (w *ResourceWatch) Run(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go w.loop(ctx, out)
	return out
}

func (w *ResourceWatch) loop(ctx context.Context, out chan<- Event) {
	defer close(out)

	for {
		resourceVersion, ok := w.relist(ctx, out)
		if !ok {
			return
		}
		if !w.watchFrom(ctx, out, resourceVersion) {
			return
		}
		// Orderly close or a recoverable transport hiccup: loop back and
		// reopen the watch from scratch (spec §4.1: "on orderly close,
		// reopens"). A short backoff avoids a hot loop against a
		// temporarily unreachable API server.
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// relist performs the full list, emits a synthetic ADDED for every item,
// and returns the resourceVersion to watch from.
func (w *ResourceWatch) relist(ctx context.Context, out chan<- Event) (string, bool) {
	items, rv, err := w.client.ListWithResourceVersion(ctx, "", "")
	if err != nil {
		glog.Errorf("%s: list failed: %v", w.name, err)
		select {
		case out <- Event{Kind: Error, Err: err}:
		case <-ctx.Done():
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(time.Second):
		}
		return w.relist(ctx, out)
	}

	for i := range items {
		item := items[i]
		select {
		case out <- Event{Kind: Added, Object: &item}:
		case <-ctx.Done():
			return "", false
		}
	}
	return rv, true
}

// watchFrom opens a watch from resourceVersion and forwards events until
// it closes. Returns false if ctx was cancelled.
func (w *ResourceWatch) watchFrom(ctx context.Context, out chan<- Event, resourceVersion string) bool {
	stream, err := w.client.Watch(ctx, "", resourceVersion)
	if err != nil {
		glog.Errorf("%s: watch failed: %v", w.name, err)
		select {
		case out <- Event{Kind: Error, Err: err}:
			return true
		case <-ctx.Done():
			return false
		}
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-stream.ResultChan():
			if !open {
				// Orderly close: caller will relist-and-reopen.
				return true
			}
			if !w.forward(ctx, out, ev) {
				return true
			}
		}
	}
}

func (w *ResourceWatch) forward(ctx context.Context, out chan<- Event, ev k8swatch.Event) bool {
	if ev.Type == k8swatch.Error {
		if status, ok := ev.Object.(*metav1.Status); ok && apierrors.IsResourceExpired(&apierrors.StatusError{ErrStatus: *status}) {
			glog.V(2).Infof("%s: watch gone (resourceVersion too old), re-listing", w.name)
			return false
		}
		glog.Warningf("%s: watch error event: %+v", w.name, ev.Object)
		select {
		case out <- Event{Kind: Error, Err: apierrors.FromObject(ev.Object)}:
		case <-ctx.Done():
		}
		return false
	}

	obj, ok := ev.Object.(*unstructured.Unstructured)
	if !ok {
		glog.Errorf("%s: watch event with unexpected object type %T", w.name, ev.Object)
		select {
		case out <- Event{Kind: Error, Err: apierrors.NewInternalError(fmt.Errorf("unexpected watch object type %T", ev.Object))}:
		case <-ctx.Done():
		}
		return true
	}

	var kind EventKind
	switch ev.Type {
	case k8swatch.Added:
		kind = Added
	case k8swatch.Modified:
		kind = Modified
	case k8swatch.Deleted:
		kind = Deleted
	default:
		glog.Warningf("%s: unknown watch event type %q", w.name, ev.Type)
		return true
	}

	select {
	case out <- Event{Kind: kind, Object: obj}:
	case <-ctx.Done():
		return false
	}
	return true
}
