package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-imm/pkg/logging"
)

// ErrVectorLength is returned when ranks contribute vectors of different
// lengths to the same round.
var ErrVectorLength = errors.New("all-reduce vector length mismatch")

// RoundStats describes the traffic of one all-reduce round on this rank.
type RoundStats struct {
	Sent     int
	Received int
	Retries  int
}

// SurveyorConfig configures the coordinator side of the all-reduce.
type SurveyorConfig struct {
	Address       string
	WorldSize     int
	SurveyTimeout time.Duration
}

// Surveyor runs all-reduce rounds from rank 0. Each round is two surveys: a
// gather that collects every rank's vector and a scatter that delivers the
// sum. A survey is repeated until every rank has answered it, so ranks that
// are still sampling when a round starts simply answer a later repetition.
type Surveyor struct {
	socket     SurveySocket
	addr       string
	world      int
	surveyTime time.Duration
	logger     logging.Logger
	mu         sync.Mutex
}

// NewSurveyor creates the coordinator socket and starts listening.
func NewSurveyor(factory SocketFactory, config SurveyorConfig, logger logging.Logger) (*Surveyor, error) {
	if config.WorldSize < 1 {
		return nil, fmt.Errorf("world size must be positive, got %d", config.WorldSize)
	}

	socket, err := factory.NewSurveyorSocket()
	if err != nil {
		return nil, err
	}

	surveyTime := config.SurveyTimeout
	if surveyTime <= 0 {
		surveyTime = time.Second
	}

	if err := socket.Listen(config.Address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("listen on %s: %w", config.Address, err)
	}
	if err := socket.SetSurveyTime(surveyTime); err != nil {
		socket.Close()
		return nil, err
	}

	return &Surveyor{
		socket:     socket,
		addr:       config.Address,
		world:      config.WorldSize,
		surveyTime: surveyTime,
		logger:     logging.OrNop(logger).With(logging.Component("surveyor")),
	}, nil
}

// AllReduceSum returns the element-wise sum of local and the vectors
// contributed by ranks 1..world-1 for the same round.
func (s *Surveyor) AllReduceSum(ctx context.Context, round uint64, local []uint64) ([]uint64, RoundStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats RoundStats
	sum := make([]uint64, len(local))
	copy(sum, local)

	gathered := make([]bool, s.world)
	gathered[0] = true
	err := s.survey(ctx, Frame{Phase: PhaseGather, Round: round}, gathered, &stats, func(f Frame) error {
		if len(f.Values) != len(local) {
			return fmt.Errorf("%w: rank %d sent %d values, want %d", ErrVectorLength, f.Rank, len(f.Values), len(local))
		}
		for i, v := range f.Values {
			sum[i] += v
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	acked := make([]bool, s.world)
	acked[0] = true
	err = s.survey(ctx, Frame{Phase: PhaseScatter, Round: round, Values: sum}, acked, &stats, func(Frame) error { return nil })
	if err != nil {
		return nil, stats, err
	}
	return sum, stats, nil
}

// survey repeats the request until every rank in answered is true. accept is
// called once per rank with its first matching response.
func (s *Surveyor) survey(ctx context.Context, request Frame, answered []bool, stats *RoundStats, accept func(Frame) error) error {
	pending := 0
	for _, ok := range answered {
		if !ok {
			pending++
		}
	}
	payload := Encode(request)

	for attempt := 0; pending > 0; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s round %d: %d ranks missing: %w", request.Phase, request.Round, pending, err)
		}
		if attempt > 0 {
			stats.Retries++
			s.logger.Debug("repeating survey",
				logging.String("phase", request.Phase.String()),
				logging.Uint64("round", request.Round),
				logging.Int("pending", pending))
		}

		if err := s.socket.Send(payload); err != nil {
			return fmt.Errorf("send %s survey: %w", request.Phase, err)
		}
		stats.Sent += len(payload)

		for pending > 0 {
			msg, err := s.socket.Recv()
			if errors.Is(err, ErrSocketClosed) {
				return err
			}
			if err != nil {
				break // survey window closed
			}
			stats.Received += len(msg)

			f, err := Decode(msg)
			if err != nil {
				s.logger.Warn("dropping response", logging.Error(err))
				continue
			}
			if f.Phase != request.Phase || f.Round != request.Round || int(f.Rank) >= len(answered) || answered[f.Rank] {
				continue
			}
			if err := accept(f); err != nil {
				return err
			}
			answered[f.Rank] = true
			pending--
		}
	}
	return nil
}

// Close closes the coordinator socket.
func (s *Surveyor) Close() error {
	return s.socket.Close()
}

// RespondentConfig configures a non-coordinator rank.
type RespondentConfig struct {
	CoordinatorAddr string
	Rank            int
	RecvTimeout     time.Duration
	// DrainTimeout is how long Close listens for a repeated scatter of the
	// last completed round. It should exceed the coordinator's survey time.
	DrainTimeout time.Duration
}

// Respondent answers the coordinator's surveys for one rank.
type Respondent struct {
	socket       DialSocket
	rank         uint32
	recvTimeout  time.Duration
	drainTimeout time.Duration
	completed    uint64 // last round whose sum was delivered
	logger       logging.Logger
	mu           sync.Mutex
}

// NewRespondent dials the coordinator. The dial completes in the background.
func NewRespondent(factory SocketFactory, config RespondentConfig, logger logging.Logger) (*Respondent, error) {
	if config.Rank < 1 {
		return nil, fmt.Errorf("respondent rank must be at least 1, got %d", config.Rank)
	}

	socket, err := factory.NewRespondentSocket()
	if err != nil {
		return nil, err
	}

	timeout := config.RecvTimeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}

	if err := socket.Dial(config.CoordinatorAddr); err != nil {
		socket.Close()
		return nil, fmt.Errorf("dial %s: %w", config.CoordinatorAddr, err)
	}
	if err := socket.SetRecvDeadline(timeout); err != nil {
		socket.Close()
		return nil, err
	}

	drain := config.DrainTimeout
	if drain <= 0 {
		drain = time.Second + timeout
	}

	return &Respondent{
		socket:       socket,
		rank:         uint32(config.Rank),
		recvTimeout:  timeout,
		drainTimeout: drain,
		logger:       logging.OrNop(logger).With(logging.Component("respondent"), logging.Rank(config.Rank)),
	}, nil
}

// AllReduceSum contributes local to the round and waits for the sum.
func (r *Respondent) AllReduceSum(ctx context.Context, round uint64, local []uint64) ([]uint64, RoundStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats RoundStats
	contribution := Encode(Frame{Phase: PhaseGather, Round: round, Rank: r.rank, Values: local})
	ack := Encode(Frame{Phase: PhaseScatter, Round: round, Rank: r.rank})

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("round %d: %w", round, err)
		}

		msg, err := r.socket.Recv()
		if errors.Is(err, ErrSocketClosed) {
			return nil, stats, err
		}
		if err != nil {
			continue // receive deadline; check the context again
		}
		stats.Received += len(msg)

		f, err := Decode(msg)
		if err != nil {
			r.logger.Warn("dropping survey", logging.Error(err))
			continue
		}

		switch {
		case f.Phase == PhaseGather && f.Round == round:
			if err := r.reply(contribution, &stats); err != nil {
				return nil, stats, err
			}
		case f.Phase == PhaseScatter && f.Round == round:
			if len(f.Values) != len(local) {
				return nil, stats, fmt.Errorf("%w: coordinator sent %d values, want %d", ErrVectorLength, len(f.Values), len(local))
			}
			if err := r.reply(ack, &stats); err != nil {
				return nil, stats, err
			}
			if f.Values == nil {
				f.Values = []uint64{}
			}
			r.completed = round
			return f.Values, stats, nil
		case f.Phase == PhaseScatter && f.Round < round:
			// Our ack for an earlier round was lost; repeat it.
			stale := Encode(Frame{Phase: PhaseScatter, Round: f.Round, Rank: r.rank})
			if err := r.reply(stale, &stats); err != nil {
				return nil, stats, err
			}
		}
	}
}

// reply answers the current survey. Only a closed socket is fatal; a reply
// that fails otherwise is recovered by the coordinator repeating its survey.
func (r *Respondent) reply(payload []byte, stats *RoundStats) error {
	err := r.socket.Send(payload)
	if errors.Is(err, ErrSocketClosed) {
		return err
	}
	if err != nil {
		r.logger.Warn("reply failed", logging.Error(err))
		return nil
	}
	stats.Sent += len(payload)
	return nil
}

// Close closes the respondent socket. If a round has completed, it first
// re-acknowledges repeated scatters of completed rounds until the coordinator
// is quiet for DrainTimeout or moves on, so a lost final ack cannot leave
// rank 0 surveying a closed rank.
func (r *Respondent) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed > 0 {
		r.drain()
	}
	return r.socket.Close()
}

func (r *Respondent) drain() {
	if err := r.socket.SetRecvDeadline(r.drainTimeout); err != nil {
		return
	}
	var stats RoundStats
	for {
		msg, err := r.socket.Recv()
		if err != nil {
			return
		}
		f, err := Decode(msg)
		if err != nil {
			continue
		}
		if f.Phase != PhaseScatter || f.Round > r.completed {
			return
		}
		r.logger.Debug("re-acknowledging scatter on close", logging.Uint64("round", f.Round))
		if err := r.reply(Encode(Frame{Phase: PhaseScatter, Round: f.Round, Rank: r.rank}), &stats); err != nil {
			return
		}
	}
}
