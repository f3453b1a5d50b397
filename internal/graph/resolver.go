// Package graph exposes the user and post operations as a GraphQL API.
package graph

import (
	"context"

	"feedql/internal/auth"
	"feedql/internal/models"
	"feedql/internal/service"

	"github.com/graphql-go/graphql"
)

// UserOperations is the part of service.UserService the API needs.
type UserOperations interface {
	Signup(ctx context.Context, in service.SignupInput) (*models.UserData, error)
	Login(ctx context.Context, email, password string) (*models.AuthData, error)
	GetUser(ctx context.Context, id auth.Identity) (*models.UserData, error)
	UpdateStatus(ctx context.Context, id auth.Identity, status string) (*models.UserData, error)
	Profile(ctx context.Context, userID uint) (*models.UserData, error)
	UserPosts(ctx context.Context, userID uint) ([]*models.PostData, error)
}

// PostOperations is the part of service.PostService the API needs.
type PostOperations interface {
	ListPosts(ctx context.Context, id auth.Identity, page int) (*models.PostPage, error)
	GetPost(ctx context.Context, id auth.Identity, postID uint) (*models.PostData, error)
	CreatePost(ctx context.Context, id auth.Identity, in service.PostInput) (*models.PostData, error)
	UpdatePost(ctx context.Context, id auth.Identity, postID uint, in service.PostInput) (*models.PostData, error)
	DeletePost(ctx context.Context, id auth.Identity, postID uint) error
}

// Resolver binds GraphQL fields to the services.
type Resolver struct {
	users UserOperations
	posts PostOperations
}

func NewResolver(users UserOperations, posts PostOperations) *Resolver {
	return &Resolver{users: users, posts: posts}
}

func identity(p graphql.ResolveParams) auth.Identity {
	return auth.FromContext(p.Context)
}

// postID parses an ID argument. Unknown ids become 0, which matches no post.
func postID(p graphql.ResolveParams) uint {
	raw, _ := p.Args["id"].(string)
	id, err := models.ParseID(raw)
	if err != nil {
		return 0
	}
	return id
}

func postInput(p graphql.ResolveParams) service.PostInput {
	in, _ := p.Args["postInput"].(map[string]interface{})
	return service.PostInput{
		Title:    stringArg(in, "title"),
		Content:  stringArg(in, "content"),
		ImageURL: stringArg(in, "imageUrl"),
	}
}

func stringArg(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)
	return r.users.Login(p.Context, email, password)
}

func (r *Resolver) createUser(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["userInput"].(map[string]interface{})
	return r.users.Signup(p.Context, service.SignupInput{
		Email:    stringArg(in, "email"),
		Name:     stringArg(in, "name"),
		Password: stringArg(in, "password"),
	})
}

func (r *Resolver) user(p graphql.ResolveParams) (interface{}, error) {
	return r.users.GetUser(p.Context, identity(p))
}

func (r *Resolver) updateStatus(p graphql.ResolveParams) (interface{}, error) {
	status, _ := p.Args["status"].(string)
	return r.users.UpdateStatus(p.Context, identity(p), status)
}

func (r *Resolver) listPosts(p graphql.ResolveParams) (interface{}, error) {
	page, _ := p.Args["page"].(int)
	return r.posts.ListPosts(p.Context, identity(p), page)
}

func (r *Resolver) post(p graphql.ResolveParams) (interface{}, error) {
	return r.posts.GetPost(p.Context, identity(p), postID(p))
}

func (r *Resolver) createPost(p graphql.ResolveParams) (interface{}, error) {
	return r.posts.CreatePost(p.Context, identity(p), postInput(p))
}

func (r *Resolver) updatePost(p graphql.ResolveParams) (interface{}, error) {
	return r.posts.UpdatePost(p.Context, identity(p), postID(p), postInput(p))
}

func (r *Resolver) deletePost(p graphql.ResolveParams) (interface{}, error) {
	if err := r.posts.DeletePost(p.Context, identity(p), postID(p)); err != nil {
		return nil, err
	}
	return true, nil
}

// postCreator prefers the author loaded with the post.
func (r *Resolver) postCreator(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*models.PostData)
	if !ok {
		return nil, nil
	}
	if u := post.CreatorUser(); u != nil {
		return u, nil
	}
	return r.users.Profile(p.Context, post.CreatorID())
}

func (r *Resolver) userPosts(p graphql.ResolveParams) (interface{}, error) {
	u, ok := p.Source.(*models.UserData)
	if !ok {
		return nil, nil
	}
	return r.users.UserPosts(p.Context, u.UserID())
}
