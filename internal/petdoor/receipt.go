package petdoor

import "github.com/nerrad567/petdoor-bridge/internal/protocol"

// receiptSlot holds the single message awaiting any reply. While it is
// occupied the writer sends nothing but PINGs and retransmissions.
type receiptSlot struct {
	msg      *outbound
	failures int
	limit    int
}

func (r *receiptSlot) busy() bool {
	return r.msg != nil
}

// arm occupies the slot with a freshly written message.
func (r *receiptSlot) arm(m *outbound) {
	r.msg = m
	r.failures = 0
}

// matches reports whether a frame answers the in-flight message, by CMD or
// by echoed message id.
func (r *receiptSlot) matches(in *protocol.Inbound) bool {
	if r.msg == nil {
		return false
	}
	if in.HasReplyTo && in.ReplyTo == r.msg.msgID {
		return true
	}
	return isReplyTo(r.msg.command, in.Command)
}

// release frees the slot after a receipt.
func (r *receiptSlot) release() {
	r.msg = nil
	r.failures = 0
}

// timeout records a missed receipt. Below the limit the message should be
// retransmitted; at the limit it is dropped and returned.
func (r *receiptSlot) timeout() (retry *outbound, dropped *outbound) {
	if r.msg == nil {
		return nil, nil
	}
	r.failures++
	if r.failures < r.limit {
		return r.msg, nil
	}
	dropped = r.msg
	r.release()
	return nil, dropped
}
