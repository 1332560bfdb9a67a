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

package modeltraining

import (
	"testing"

	"k8s.io/apimachinery/pkg/api/resource"
)

func TestReduceCPUResource_HalvesLimit(t *testing.T) {
	got := reduceCPUResource("2")
	q, err := resource.ParseQuantity(got)
	if err != nil {
		t.Fatalf("ParseQuantity(%q): %v", got, err)
	}
	if q.MilliValue() != 1000 {
		t.Fatalf("reduceCPUResource(2) = %v, want 1000m", q.MilliValue())
	}
}

func TestReduceCPUResource_FloorsAtMinimum(t *testing.T) {
	got := reduceCPUResource("100m")
	q, err := resource.ParseQuantity(got)
	if err != nil {
		t.Fatalf("ParseQuantity(%q): %v", got, err)
	}
	if q.MilliValue() != 100 {
		t.Fatalf("reduceCPUResource(100m) = %v, want floor of 100m", q.MilliValue())
	}
}

func TestReduceMemResource_HalvesLimit(t *testing.T) {
	got := reduceMemResource("4Gi")
	q, err := resource.ParseQuantity(got)
	if err != nil {
		t.Fatalf("ParseQuantity(%q): %v", got, err)
	}
	want := int64(2 * 1024 * 1024 * 1024)
	if q.Value() != want {
		t.Fatalf("reduceMemResource(4Gi) = %v, want %v", q.Value(), want)
	}
}
