package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// recordInviteScript credits ARGV[2] to ARGV[1] unless the invitee already has an inviter.
// KEYS[1] maps the invitee to its inviter, KEYS[2] is the inviter's invitee set.
var recordInviteScript = redis.NewScript(`
local added = redis.call('SETNX', KEYS[1], ARGV[1])
if added == 1 then
  redis.call('SADD', KEYS[2], ARGV[2])
end
local owner = redis.call('GET', KEYS[1])
return {added, redis.call('SCARD', KEYS[2]), owner}
`)

type redisReferralLedger struct {
	client    *redis.Client
	namespace string
}

// NewRedisReferralLedger stores edges as an invitee key plus a set per inviter.
func NewRedisReferralLedger(client *redis.Client, namespace string) ReferralLedger {
	return &redisReferralLedger{client: client, namespace: namespace}
}

func (l *redisReferralLedger) inviterKey(inviteeID int64) string {
	return l.namespace + ":ref:invitee:" + strconv.FormatInt(inviteeID, 10)
}

func (l *redisReferralLedger) inviteesKey(inviterID int64) string {
	return l.namespace + ":ref:inviter:" + strconv.FormatInt(inviterID, 10)
}

func (l *redisReferralLedger) RecordInvite(ctx context.Context, inviterID, inviteeID int64) (RecordResult, error) {
	if inviterID == inviteeID {
		return RecordResult{}, domain.ErrSelfInvite
	}

	keys := []string{l.inviterKey(inviteeID), l.inviteesKey(inviterID)}
	res, err := recordInviteScript.Run(ctx, l.client, keys, inviterID, inviteeID).Slice()
	if err != nil {
		return RecordResult{}, fmt.Errorf("record invite %d->%d: %w", inviterID, inviteeID, err)
	}
	if len(res) != 3 {
		return RecordResult{}, fmt.Errorf("record invite: unexpected reply %v", res)
	}

	added, _ := res[0].(int64)
	count, _ := res[1].(int64)
	ownerRaw, _ := res[2].(string)
	owner, err := strconv.ParseInt(ownerRaw, 10, 64)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record invite: bad owner %q: %w", ownerRaw, err)
	}

	return RecordResult{Count: int(count), Added: added == 1, CreditedTo: owner}, nil
}

func (l *redisReferralLedger) Count(ctx context.Context, inviterID int64) (int, error) {
	n, err := l.client.SCard(ctx, l.inviteesKey(inviterID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count invites %d: %w", inviterID, err)
	}
	return int(n), nil
}
