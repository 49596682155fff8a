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


// Package search ranks cached document embeddings against free-text queries
// and capability statements.
//
// All ranking is exact: the query is embedded once and compared by cosine
// similarity with every cached vector. Results are sorted by score with a
// stable sort, so equal scores keep the cache's insertion order and repeated
// queries return identical results.
//
// A Searcher answers threshold and top-k queries. A Matcher embeds a list of
// capabilities in one batch and picks the best matching documents for each.
package search
