/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements layout file persistence and the recent-layouts index.
// Layout files are written transactionally (temp file, fsync, rename) with a timestamped backup of the previous version,
// and reads fall back to the newest backup when the current file is missing or rejected.
// The SQLite index at <data dir>/index.sqlite only remembers which layouts were opened recently; it is disposable and recreated when corrupt.
package storage
