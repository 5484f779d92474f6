// Package oracle reads the SOL/USD price feed and converts the fixed
// USD minimum deposit into lamports. Stale or non-positive prices
// fall back to a conservative default rather than failing the
// registration.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
)

// DefaultCacheTTL bounds how long a computed minimum is reused before
// the feed is read again.
const DefaultCacheTTL = 30 * time.Second

// Round is one decoded price observation from the feed account.
type Round struct {
	Answer    int64
	Decimals  uint8
	Timestamp int64
}

// String renders the price with its decimal point placed, the way
// feeds report it.
func (r Round) String() string {
	scaled := fmt.Sprintf("%d", r.Answer)
	neg := strings.HasPrefix(scaled, "-")
	if neg {
		scaled = scaled[1:]
	}
	d := int(r.Decimals)
	if len(scaled) <= d {
		scaled = strings.Repeat("0", d-len(scaled)+1) + scaled
	}
	if d > 0 {
		scaled = scaled[:len(scaled)-d] + "." + scaled[len(scaled)-d:]
	}
	if neg {
		scaled = "-" + scaled
	}
	return scaled
}

var roundDiscriminator = [8]byte{'p', 'r', 'i', 'c', 'e', 'r', 'n', 'd'}

// EncodeRound serializes a round into feed account data.
func EncodeRound(r Round) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(roundDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(r.Answer); err != nil {
		return nil, err
	}
	if err := enc.Encode(r.Decimals); err != nil {
		return nil, err
	}
	if err := enc.Encode(r.Timestamp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRound deserializes feed account data.
func DecodeRound(data []byte) (Round, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], roundDiscriminator[:]) {
		return Round{}, fmt.Errorf("not a price feed account")
	}
	dec := bin.NewBorshDecoder(data[8:])
	var r Round
	if err := dec.Decode(&r.Answer); err != nil {
		return Round{}, err
	}
	if err := dec.Decode(&r.Decimals); err != nil {
		return Round{}, err
	}
	if err := dec.Decode(&r.Timestamp); err != nil {
		return Round{}, err
	}
	return r, nil
}

// Oracle computes minimum deposits from feed accounts. Computed
// values are cached briefly; prices do not move fast enough to read
// the feed on every registration.
type Oracle struct {
	log   *slog.Logger
	clock clockwork.Clock
	cache *ttlcache.Cache[solana.PublicKey, uint64]
}

var _ matrix.DepositOracle = (*Oracle)(nil)

func New(log *slog.Logger, clock clockwork.Clock, cacheTTL time.Duration) *Oracle {
	return &Oracle{
		log:   log,
		clock: clock,
		cache: ttlcache.New(
			ttlcache.WithTTL[solana.PublicKey, uint64](cacheTTL),
			ttlcache.WithDisableTouchOnHit[solana.PublicKey, uint64](),
		),
	}
}

// LatestRound reads and decodes the feed account.
func (o *Oracle) LatestRound(tx *ledger.Tx, feed solana.PublicKey) (Round, error) {
	acc, err := tx.Get(feed)
	if err != nil {
		return Round{}, fmt.Errorf("failed to read price feed %s: %w", feed, err)
	}
	return DecodeRound(acc.Data)
}

// MinimumDeposit returns the minimum deposit in lamports for the
// current SOL/USD price. A feed older than the staleness bound, or a
// non-positive answer, falls back to the default price.
func (o *Oracle) MinimumDeposit(ctx context.Context, tx *ledger.Tx, feed solana.PublicKey) (uint64, error) {
	if item := o.cache.Get(feed); item != nil {
		return item.Value(), nil
	}

	round, err := o.LatestRound(tx, feed)
	if err != nil {
		return 0, err
	}

	price := round.Answer
	decimals := round.Decimals
	age := o.clock.Now().Unix() - round.Timestamp
	if price <= 0 || age > config.MaxPriceFeedAge {
		o.log.Warn("price feed unusable, falling back to default price",
			"feed", feed,
			"answer", round.Answer,
			"age_seconds", age,
		)
		price = config.DefaultSolPriceUSD
		decimals = 8
	}

	pricePerSol := float64(price) / math.Pow(10, float64(decimals))
	minimumUSD := float64(config.MinimumUSDDeposit) / 1e8
	lamports := uint64(minimumUSD / pricePerSol * float64(solana.LAMPORTS_PER_SOL))

	o.cache.Set(feed, lamports, ttlcache.DefaultTTL)
	return lamports, nil
}
