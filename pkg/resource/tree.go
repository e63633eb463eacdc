// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resource

import (
	"sync"
)

// 🌳 Tree is the result of one discovery
type Tree struct {
	directories []*Transferable
	files       []*Transferable
	links       []*Transferable
}

func (t *Tree) DirectoryCount() int { return len(t.directories) }
func (t *Tree) FileCount() int      { return len(t.files) }
func (t *Tree) LinkCount() int      { return len(t.links) }

// Directories lists directories, parents before children
func (t *Tree) Directories() []*Transferable {
	return append([]*Transferable(nil), t.directories...)
}

// Links lists links that are kept as links or skipped
func (t *Tree) Links() []*Transferable {
	return append([]*Transferable(nil), t.links...)
}

// Files returns a fresh queue over the files, in discovery order
func (t *Tree) Files() *Queue {
	return &Queue{items: t.files}
}

// 🚚 Queue hands out files to concurrent workers. It never blocks.
type Queue struct {
	mu    sync.Mutex
	items []*Transferable
	next  int
}

// Next pops the next item; false once the queue is exhausted
func (q *Queue) Next() (*Transferable, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next >= len(q.items) {
		return nil, false
	}
	item := q.items[q.next]
	q.next++
	return item, true
}

// Remaining is the number of items not yet handed out
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.next
}
