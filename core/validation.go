// Copyright 2025 Poiesic Systems
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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty or whitespace
//
// NOT validated (missing text is substituted with empty strings):
//   - Title
//   - Description
//   - CategoryCode
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	return nil
}

// ValidateVector checks that v is non-empty and, when dims > 0, that it has
// exactly dims components.
func ValidateVector(v Vector, dims int) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	if dims > 0 && len(v) != dims {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dims, len(v))
	}
	return nil
}

// ValidateVectors checks that every vector is valid and that all of them share
// one width. When dims is 0 the width of the first vector is used.
// Returns the common width.
func ValidateVectors(vectors []Vector, dims int) (int, error) {
	for i, v := range vectors {
		if dims == 0 {
			dims = len(v)
		}
		if err := ValidateVector(v, dims); err != nil {
			return 0, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return dims, nil
}
