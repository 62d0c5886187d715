package handlers

import (
	"context"
	"strings"

	"github.com/BatmanBruc/ofmbot/types"
)

// movePending drains the pending buffer into s. Files that lost their
// Telegram file ID can no longer be fetched and are skipped.
func (bh *Handlers) movePending(ctx context.Context, s *types.Session) int {
	pending, err := bh.sessions.TakePending(ctx, s.UserID)
	if err != nil {
		bh.log.Warn().Err(err).Int64("user_id", s.UserID).Msg("take pending")
		return 0
	}
	moved := 0
	for _, f := range pending {
		if strings.TrimSpace(f.FileID) == "" {
			continue
		}
		s.Files = append(s.Files, f)
		moved++
	}
	return moved
}
