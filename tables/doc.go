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

// Package tables classifies raw tables extracted from fund reports and turns
// their rows into ledger records.
//
// Classification scores keyword hits in the first three rows against one
// keyword set per transaction type. Adjustment keywords are weighted double
// and ties go to core.ClassificationPriority. Keyword tables are plain YAML
// (see keywords.yaml) and can be replaced with LoadKeywordsFile.
//
// Row extraction is heuristic: each field is located by header keywords and
// falls back to scanning the row. A row missing its date or amount is
// skipped and the reason recorded on the ClassifiedTable; one bad row never
// fails the table.
//
//	parser := tables.NewParser()
//	result := parser.Parse(core.RawTable{
//	    {"Date", "Amount", "Description"},
//	    {"01/15/2024", "$1,500,000", "Q1 capital call"},
//	})
//	// result.Type == core.TableCapitalCall
package tables
