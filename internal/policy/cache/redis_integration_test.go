//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"policygate/internal/policy/cache"
	"policygate/internal/policy/models"
	id "policygate/pkg/domain"
	"policygate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.New(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) newPolicy() models.Policy {
	p, err := models.NewPolicy("GOLD", "Gold Plan", "Comprehensive cover", 499.99, true, time.Now().UTC().Truncate(time.Second))
	s.Require().NoError(err)
	return p
}

func (s *RedisCacheSuite) TestSetGetRoundTrip() {
	ctx := context.Background()
	p := s.newPolicy()

	s.Require().NoError(s.cache.Set(ctx, &p))

	got, err := s.cache.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(p.ID, got.ID)
	s.Equal(p.Code, got.Code)
	s.Equal(p.Amount, got.Amount)
}

func (s *RedisCacheSuite) TestGet_Miss() {
	got, err := s.cache.Get(context.Background(), id.NewPolicyID())
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisCacheSuite) TestInvalidate() {
	ctx := context.Background()
	p := s.newPolicy()

	s.Require().NoError(s.cache.Set(ctx, &p))
	s.Require().NoError(s.cache.Invalidate(ctx, p.ID))

	got, err := s.cache.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisCacheSuite) TestPoisonedEntryReadsAsMiss() {
	ctx := context.Background()
	policyID := id.NewPolicyID()

	s.Require().NoError(s.redis.Client.Set(ctx, "policy:id:"+policyID.String(), "{not json", 0).Err())

	got, err := s.cache.Get(ctx, policyID)
	s.Require().NoError(err)
	s.Nil(got)

	// The bad entry is gone afterwards.
	exists, err := s.redis.Client.Exists(ctx, "policy:id:"+policyID.String()).Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	short := cache.New(s.redis.Client, cache.WithTTL(time.Second))
	p := s.newPolicy()

	s.Require().NoError(short.Set(ctx, &p))

	ttl, err := s.redis.Client.TTL(ctx, "policy:id:"+p.ID.String()).Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, time.Second)
}
