package rpc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/goran-ethernal/TokenLedger/internal/common"
)

var (
	tooManyResultsRe = regexp.MustCompile(`(?i)query returned more than \d+ results`)
	blockRangeRe     = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError reports whether err is a provider's "query returned more than N results"
// rejection of an eth_getLogs range. The second value carries the error data that may hold a
// suggested range.
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		errData := fmt.Sprintf("%v", dataErr.ErrorData())
		if tooManyResultsRe.MatchString(errData) {
			return true, errData
		}
	}

	// some providers only put it in the message
	if tooManyResultsRe.MatchString(err.Error()) {
		return true, err.Error()
	}

	return false, ""
}

// ParseSuggestedBlockRange extracts the block range a provider suggests in a too-many-results error.
// Expected format: "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := blockRangeRe.FindStringSubmatch(msg)

	const expectedMatches = 3 // full match + 2 groups
	if len(matches) != expectedMatches {
		return 0, 0, false
	}

	from, err1 := common.ParseUint64orHex(&matches[1])
	to, err2 := common.ParseUint64orHex(&matches[2])
	if err1 != nil || err2 != nil || from > to {
		return 0, 0, false
	}

	return from, to, true
}

// errorType buckets err for the rpc error metric.
func errorType(err error) string {
	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return "too_many_results"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limited"
	case retryableError(err):
		return "transient"
	default:
		return "other"
	}
}
