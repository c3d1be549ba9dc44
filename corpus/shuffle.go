/*
 *	Copyright 2025 The digits authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package corpus

import "math/rand"

// Shuffle reorders the batch in place with one pseudo-random permutation,
// deterministic for a fixed seed. The same permutation is applied to images
// and labels, so the pairing is preserved.
func (b *Batch) Shuffle(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	b.ShuffleWith(rng)
}

// ShuffleWith is like Shuffle but uses the caller's random source.
func (b *Batch) ShuffleWith(rng *rand.Rand) {
	perm := rng.Perm(b.Len())
	pixels := make([][]byte, len(perm))
	labels := make([]Label, len(perm))
	for to, from := range perm {
		pixels[to] = b.pixels[from]
		labels[to] = b.labels[from]
	}
	b.pixels = pixels
	b.labels = labels
}
