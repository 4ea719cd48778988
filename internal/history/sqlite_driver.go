// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 aleyoscar

package history

import _ "modernc.org/sqlite"

const driverName = "sqlite"
