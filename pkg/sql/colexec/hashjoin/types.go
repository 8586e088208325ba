// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package hashjoin

// container is the chained hash table over the build side of one bucket.
// Row ids are 1-based so that 0 marks an empty bucket or the end of a chain.
type container struct {
	// vhash maps an inner bucket to the id of the last row inserted into it.
	vhash []int64
	// vlink maps a row id to the id of the row inserted before it in the
	// same inner bucket.
	vlink []int64
	// live is the number of inner buckets whose chain is not exhausted.
	live int
}
