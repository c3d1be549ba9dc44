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

package sources

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// normalize converts any decoded image to the reader's target shape: resized
// to Height x Width when needed, then flattened to HWC uint8 -- luminance for
// 1 channel, RGB for 3. Every reader routes its images through here, so all
// sources agree on the final shape before merging.
func (r *Reader) normalize(img image.Image) []byte {
	bounds := img.Bounds()
	if bounds.Dx() != r.shape.Width || bounds.Dy() != r.shape.Height {
		img = imaging.Resize(img, r.shape.Width, r.shape.Height, imaging.Linear)
		bounds = img.Bounds()
	}
	pixels := make([]byte, 0, r.shape.Size())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if r.shape.Channels == 1 {
				gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				pixels = append(pixels, gray.Y)
			} else {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				pixels = append(pixels, byte(cr>>8), byte(cg>>8), byte(cb>>8))
			}
		}
	}
	return pixels
}
