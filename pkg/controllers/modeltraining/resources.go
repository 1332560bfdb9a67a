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

import "k8s.io/apimachinery/pkg/api/resource"

// reduceCPUResource derives a request quantity from a limit quantity by
// halving it, floored at a minimum of 100m (spec §4.6: "requests =
// limits / 2, floored to a minimum unit").
func reduceCPUResource(limit string) string {
	q, err := resource.ParseQuantity(limit)
	if err != nil {
		return limit
	}
	halved := q.MilliValue() / 2
	const minCPUMilli = 100
	if halved < minCPUMilli {
		halved = minCPUMilli
	}
	return resource.NewMilliQuantity(halved, resource.DecimalSI).String()
}

// reduceMemResource mirrors reduceCPUResource for memory quantities,
// floored at a minimum of 64Mi.
func reduceMemResource(limit string) string {
	q, err := resource.ParseQuantity(limit)
	if err != nil {
		return limit
	}
	halved := q.Value() / 2
	const minMemBytes = 64 * 1024 * 1024
	if halved < minMemBytes {
		halved = minMemBytes
	}
	return resource.NewQuantity(halved, resource.BinarySI).String()
}
