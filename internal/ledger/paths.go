package ledger

import "fmt"

// Store path layout. These paths are the wire contract toward the realtime
// store and must not change shape: connected clients resolve records by
// building the same paths.
//
//	ids/{sessionId}/transactionHistory  -> int counter
//	access/{accessCode}                 -> access record
//	games/session-{sessionId}           -> session record

// IDPath is the session id claim record.
func IDPath(sessionID int) string {
	return fmt.Sprintf("ids/%d", sessionID)
}

// TransactionHistoryPath is the per-session transaction counter leaf.
func TransactionHistoryPath(sessionID int) string {
	return fmt.Sprintf("ids/%d/transactionHistory", sessionID)
}

// AccessPath is the global access-code index entry.
func AccessPath(code string) string {
	return fmt.Sprintf("access/%s", code)
}

// SessionPath is the root of one session record.
func SessionPath(sessionID int) string {
	return fmt.Sprintf("games/session-%d", sessionID)
}

// PlayersPath is the participant map subtree of one session.
func PlayersPath(sessionID int) string {
	return fmt.Sprintf("games/session-%d/players", sessionID)
}

// PlayerPath is one participant's subrecord.
func PlayerPath(sessionID int, code string) string {
	return fmt.Sprintf("games/session-%d/players/%s", sessionID, code)
}

// PlayerStatusPath is one participant's presence leaf.
func PlayerStatusPath(sessionID int, code string) string {
	return fmt.Sprintf("games/session-%d/players/%s/status", sessionID, code)
}

// PlayerBalancePath is one participant's balance leaf.
func PlayerBalancePath(sessionID int, code string) string {
	return fmt.Sprintf("games/session-%d/players/%s/balance", sessionID, code)
}
