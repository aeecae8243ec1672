package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maderalink/internal/models"
	"maderalink/internal/utils"
)

// CommentTreeBuilder turns the flat comment list of a project into a forest
// of comments decorated with their authors.
type CommentTreeBuilder struct {
	users UserResolver
	log   *zap.Logger

	// Placeholder, when set, supplies the author of a comment whose lookup
	// failed instead of failing the whole build.
	Placeholder func(userID int64, err error) *models.UserProfile
}

func NewCommentTreeBuilder(users UserResolver, log *zap.Logger) *CommentTreeBuilder {
	return &CommentTreeBuilder{users: users, log: log.Named("comments")}
}

// ancestry is the chain of comment ids from a node up to its root. It is
// shared read-only between goroutines.
type ancestry struct {
	id     int64
	parent *ancestry
}

func (a *ancestry) contains(id int64) bool {
	for ; a != nil; a = a.parent {
		if a.id == id {
			return true
		}
	}
	return false
}

// Build resolves every author and links replies under their parents. Top-level
// comments and siblings keep their input order. Replies whose parent is not in
// the input are dropped. comments is not modified.
func (b *CommentTreeBuilder) Build(ctx context.Context, comments []models.Comment) ([]*models.CommentWithUser, error) {
	if len(comments) == 0 {
		return []*models.CommentWithUser{}, nil
	}

	ids := make(map[int64]struct{}, len(comments))
	for _, c := range comments {
		ids[c.ID] = struct{}{}
	}

	var roots []models.Comment
	replies := make(map[int64][]models.Comment)
	orphans := 0
	for _, c := range comments {
		if c.IsTopLevel() {
			roots = append(roots, c)
			continue
		}
		if _, ok := ids[*c.ParentID]; !ok {
			orphans++
			continue
		}
		replies[*c.ParentID] = append(replies[*c.ParentID], c)
	}
	if orphans > 0 {
		b.log.Debug("Dropped replies without parent", zap.Int("count", orphans))
	}

	return b.resolveLevel(ctx, roots, replies, nil)
}

// resolveLevel resolves one set of siblings concurrently and joins before
// returning them in input order.
func (b *CommentTreeBuilder) resolveLevel(ctx context.Context, level []models.Comment, replies map[int64][]models.Comment, path *ancestry) ([]*models.CommentWithUser, error) {
	nodes := make([]*models.CommentWithUser, len(level))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range level {
		g.Go(func() error {
			node, err := b.resolveNode(gctx, c, replies, path)
			if err != nil {
				return err
			}
			nodes[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.CommentWithUser, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (b *CommentTreeBuilder) resolveNode(ctx context.Context, c models.Comment, replies map[int64][]models.Comment, path *ancestry) (*models.CommentWithUser, error) {
	if path.contains(c.ID) {
		b.log.Debug("Skipped comment already on its own ancestor path", zap.Int64("comment_id", c.ID))
		return nil, nil
	}

	author, err := b.users.ResolveUser(ctx, c.UserID)
	if err != nil {
		if b.Placeholder == nil {
			return nil, fmt.Errorf("author of comment %d: %w", c.ID, err)
		}
		b.log.Warn("Using placeholder author", zap.Int64("comment_id", c.ID), zap.Int64("user_id", c.UserID), zap.Error(err))
		author = b.Placeholder(c.UserID, err)
	}

	children, err := b.resolveLevel(ctx, replies[c.ID], replies, &ancestry{id: c.ID, parent: path})
	if err != nil {
		return nil, err
	}

	return &models.CommentWithUser{
		Comment:     c,
		User:        author,
		ContentHTML: utils.RenderMarkdown(c.Content),
		Replies:     children,
	}, nil
}

// DeletedUser is a Placeholder that shows the author as a removed account.
func DeletedUser(userID int64, _ error) *models.UserProfile {
	return &models.UserProfile{ID: userID, Username: "[deleted]"}
}
