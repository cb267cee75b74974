// Package protocol defines the tagged JSON wire format exchanged over the
// websocket endpoint.
//
// Client -> Server
// InitRoom:
//	config: { cols: number, rows: number, mines: number }
//	player: { user_id, user_name, user_icon } // optional
//
// JoinRoom:
//	room_id: string
//	player: { user_id, user_name, user_icon }
//
// GameOp:
//	room_id: string
//	op: { kind: "Reveal" | "Flag", row: number, col: number }
//
// Server -> Client
// InitRoom:
//	room_id: string // reply to the creator only
//
// JoinRoom:
//	player: { user_id, user_name, user_icon }
//
// PlayerLeave:
//	player: { user_id, user_name, user_icon }
//
// GameStart:
//	players: [Player]
//	config: { cols, rows, mines }
//
// GameOpRes:
//	op_res:
//	  revealed_cells: [{ row, col, adjacent }]
//	  flags: [{ row, col, flagged }]
//	  outcome: "Continue" | "Won" | "Lost"
//	  mines: [{ row, col }]        // terminal outcomes only
//	  detonated: { row, col }      // Lost only
//
// GameEnd:
//	success: bool
//	scores: number   // cells opened on a win, 0 on a loss
//	duration: number // seconds since GameStart
//	steps: number    // accepted operations
//
// InvalidRequest:
//	error: string
package protocol
