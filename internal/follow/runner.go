package follow

import (
	"context"
	"sync"

	"rss-scn/internal/logx"
	"rss-scn/internal/model"
)

// Run 获取关注列表并以有限并发解析每个关注者；结果顺序与关注列表一致。
// 只有关注列表本身获取失败时返回 error。
func (r *Resolver) Run(ctx context.Context, profileID string) ([]Outcome, error) {
	followers, err := r.ListFollowing(ctx, profileID)
	if err != nil {
		return nil, err
	}
	logx.Infof("following list of %s: %d profiles", profileID, len(followers))

	out := make([]Outcome, len(followers))
	sem := make(chan struct{}, max(1, r.opts.Concurrency))
	var wg sync.WaitGroup
	for i, f := range followers {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o := r.Resolve(ctx, f)
			r.report(o)
			out[i] = o
		}()
	}
	wg.Wait()
	return out, nil
}

func (r *Resolver) report(o Outcome) {
	who := o.Follower.DisplayName()
	if o.Skipped() {
		logx.Warnf("[%s|%s] skipped at %s: %s", who, o.Follower.ProfileID, o.Step, o.Reason)
		r.observe("skipped")
		return
	}
	logx.Debugf("[%s|%s] feed %s", who, o.Follower.ProfileID, o.Feed.XMLURL)
	r.observe("resolved")
}

func (r *Resolver) observe(result string) {
	if r.opts.Observe != nil {
		r.opts.Observe(result)
	}
}

// Feeds 按顺序收集成功的订阅条目。
func Feeds(outcomes []Outcome) []model.OPMLFeed {
	feeds := make([]model.OPMLFeed, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Feed != nil {
			feeds = append(feeds, *o.Feed)
		}
	}
	return feeds
}

// Summary 统计成功与跳过的数量。
func Summary(outcomes []Outcome) (resolved, skipped int) {
	for _, o := range outcomes {
		if o.Skipped() {
			skipped++
		} else {
			resolved++
		}
	}
	return resolved, skipped
}
