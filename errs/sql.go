/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package errs

import liberr "github.com/sabouaram/valve/errors"

// SQL driver error codes, one per distinguishable failure kind the
// driver, parser and result set surface.
const (
	SQLConnectionClosed liberr.CodeError = iota + liberr.MinPkgSQLDriver
	SQLResultSetClosed
	SQLResultSetReadOnly
	SQLFeatureNotSupported
	SQLWrongDataType
	SQLInvalidColumnNumber
	SQLInvalidParameterNumber
	SQLUnknownColumn
	SQLUnknownTable
	SQLUnknownPoint
	SQLAmbiguousKey
	SQLMissingKeyColumn
	SQLColumnReadOnly
	SQLTableReadOnly
	SQLPointNotSpecified
	SQLStampNotSpecified
	SQLNotAName
	SQLNotAUUID
	SQLNotAStamp
	SQLNotANumber
	SQLPatternSyntaxError
	SQLUnexpectedToken
	SQLUnexpectedEnd
	SQLUnexpectedColumn
	SQLMultipleTables
	SQLDuplicateAlias
	SQLMissingQuote
	SQLInvalidEscape
	SQLInvalidNumberFormat
	SQLTransactionFailed
	SQLAutoCommit
	SQLResultSetConcurrencyNotSupported
	SQLResultSetHoldabilityNotSupported
	SQLTransactionLevelNotSupported
	SQLSessionException
	SQLConnectFailed
	SQLBadConnectionURL
	SQLInvalidCursorPosition
	SQLNotAQueryStatement
	SQLNotAnUpdateStatement
)

// SQLState maps each SQL driver error code to its SQL:1999-compatible
// SQLSTATE class: 37000 for syntax errors, 08001/08003/08004 for
// connection failures, 42S02/42S22 for missing table/column, 0A000 for
// unsupported features.
var sqlState = map[liberr.CodeError]string{
	SQLConnectionClosed:                 "08003",
	SQLResultSetClosed:                  "24000",
	SQLResultSetReadOnly:                "25006",
	SQLFeatureNotSupported:              "0A000",
	SQLWrongDataType:                    "42000",
	SQLInvalidColumnNumber:              "42S22",
	SQLInvalidParameterNumber:           "07001",
	SQLUnknownColumn:                    "42S22",
	SQLUnknownTable:                     "42S02",
	SQLUnknownPoint:                     "02000",
	SQLAmbiguousKey:                     "42702",
	SQLMissingKeyColumn:                 "42000",
	SQLColumnReadOnly:                   "42000",
	SQLTableReadOnly:                    "42000",
	SQLPointNotSpecified:                "37000",
	SQLStampNotSpecified:                "37000",
	SQLNotAName:                         "37000",
	SQLNotAUUID:                         "37000",
	SQLNotAStamp:                        "37000",
	SQLNotANumber:                       "37000",
	SQLPatternSyntaxError:               "2201B",
	SQLUnexpectedToken:                  "37000",
	SQLUnexpectedEnd:                    "37000",
	SQLUnexpectedColumn:                 "37000",
	SQLMultipleTables:                   "37000",
	SQLDuplicateAlias:                   "37000",
	SQLMissingQuote:                     "37000",
	SQLInvalidEscape:                    "37000",
	SQLInvalidNumberFormat:              "37000",
	SQLTransactionFailed:                "40000",
	SQLAutoCommit:                       "25000",
	SQLResultSetConcurrencyNotSupported: "0A000",
	SQLResultSetHoldabilityNotSupported: "0A000",
	SQLTransactionLevelNotSupported:     "0A000",
	SQLSessionException:                 "08001",
	SQLConnectFailed:                    "08001",
	SQLBadConnectionURL:                 "08001",
	SQLInvalidCursorPosition:            "24000",
	SQLNotAQueryStatement:                "07000",
	SQLNotAnUpdateStatement:              "07000",
}

// SQLState returns the SQLSTATE class associated with code, or "" if the
// code carries none.
func SQLStateOf(code liberr.CodeError) string {
	return sqlState[code]
}

func init() {
	liberr.RegisterIdFctMessage(SQLConnectionClosed, sqlMessage)
}

func sqlMessage(code liberr.CodeError) string {
	switch code {
	case SQLConnectionClosed:
		return "connection is closed"
	case SQLResultSetClosed:
		return "result set is closed"
	case SQLResultSetReadOnly:
		return "result set is read-only"
	case SQLFeatureNotSupported:
		return "feature not supported"
	case SQLWrongDataType:
		return "wrong data type"
	case SQLInvalidColumnNumber:
		return "invalid column number"
	case SQLInvalidParameterNumber:
		return "invalid parameter number"
	case SQLUnknownColumn:
		return "unknown column"
	case SQLUnknownTable:
		return "unknown table"
	case SQLUnknownPoint:
		return "unknown point"
	case SQLAmbiguousKey:
		return "ambiguous key"
	case SQLMissingKeyColumn:
		return "missing key column"
	case SQLColumnReadOnly:
		return "column is read-only"
	case SQLTableReadOnly:
		return "table is read-only"
	case SQLPointNotSpecified:
		return "point not specified"
	case SQLStampNotSpecified:
		return "stamp not specified"
	case SQLNotAName:
		return "value is not a point name"
	case SQLNotAUUID:
		return "value is not a UUID"
	case SQLNotAStamp:
		return "value is not a timestamp"
	case SQLNotANumber:
		return "value is not a number"
	case SQLPatternSyntaxError:
		return "invalid regular expression pattern"
	case SQLUnexpectedToken:
		return "unexpected token"
	case SQLUnexpectedEnd:
		return "unexpected end of statement"
	case SQLUnexpectedColumn:
		return "unexpected column in this context"
	case SQLMultipleTables:
		return "statement references more than one table"
	case SQLDuplicateAlias:
		return "duplicate column alias"
	case SQLMissingQuote:
		return "unterminated quoted string"
	case SQLInvalidEscape:
		return "invalid escape sequence"
	case SQLInvalidNumberFormat:
		return "invalid numeric literal"
	case SQLTransactionFailed:
		return "transaction failed"
	case SQLAutoCommit:
		return "commit/rollback invalid while auto-commit is enabled"
	case SQLResultSetConcurrencyNotSupported:
		return "result set concurrency not supported"
	case SQLResultSetHoldabilityNotSupported:
		return "result set holdability not supported"
	case SQLTransactionLevelNotSupported:
		return "transaction isolation level not supported"
	case SQLSessionException:
		return "upstream session exception"
	case SQLConnectFailed:
		return "connect failed"
	case SQLBadConnectionURL:
		return "malformed connection URL"
	case SQLInvalidCursorPosition:
		return "cursor is not positioned on a row"
	case SQLNotAQueryStatement:
		return "statement is not a query"
	case SQLNotAnUpdateStatement:
		return "statement is not an update"
	}

	return ""
}
