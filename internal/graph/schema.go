package graph

import (
	"feedql/internal/models"

	"github.com/graphql-go/graphql"
)

func nonNull(t graphql.Type) graphql.Type { return graphql.NewNonNull(t) }

func postField(get func(*models.PostData) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if post, ok := p.Source.(*models.PostData); ok {
			return get(post), nil
		}
		return nil, nil
	}
}

func userField(get func(*models.UserData) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if u, ok := p.Source.(*models.UserData); ok {
			return get(u), nil
		}
		return nil, nil
	}
}

// NewSchema builds the executable schema backed by r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	var postType, userType *graphql.Object

	postType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"_id":       {Type: nonNull(graphql.ID), Resolve: postField(func(p *models.PostData) interface{} { return p.ID })},
				"title":     {Type: nonNull(graphql.String), Resolve: postField(func(p *models.PostData) interface{} { return p.Title })},
				"content":   {Type: nonNull(graphql.String), Resolve: postField(func(p *models.PostData) interface{} { return p.Content })},
				"imageUrl":  {Type: nonNull(graphql.String), Resolve: postField(func(p *models.PostData) interface{} { return p.ImageURL })},
				"creator":   {Type: nonNull(userType), Resolve: r.postCreator},
				"createdAt": {Type: nonNull(graphql.String), Resolve: postField(func(p *models.PostData) interface{} { return p.CreatedAt })},
				"updatedAt": {Type: nonNull(graphql.String), Resolve: postField(func(p *models.PostData) interface{} { return p.UpdatedAt })},
			}
		}),
	})

	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"_id":    {Type: nonNull(graphql.ID), Resolve: userField(func(u *models.UserData) interface{} { return u.ID })},
				"name":   {Type: nonNull(graphql.String), Resolve: userField(func(u *models.UserData) interface{} { return u.Name })},
				"email":  {Type: nonNull(graphql.String), Resolve: userField(func(u *models.UserData) interface{} { return u.Email })},
				"status": {Type: nonNull(graphql.String), Resolve: userField(func(u *models.UserData) interface{} { return u.Status })},
				"posts":  {Type: nonNull(graphql.NewList(nonNull(postType))), Resolve: r.userPosts},
			}
		}),
	})

	authDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthData",
		Fields: graphql.Fields{
			"token":  {Type: nonNull(graphql.String)},
			"userId": {Type: nonNull(graphql.String)},
		},
	})

	postDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PostData",
		Fields: graphql.Fields{
			"posts": {
				Type: nonNull(graphql.NewList(nonNull(postType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if page, ok := p.Source.(*models.PostPage); ok {
						return page.Posts, nil
					}
					return nil, nil
				},
			},
			"totalPosts": {
				Type: nonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if page, ok := p.Source.(*models.PostPage); ok {
						return int(page.TotalPosts), nil
					}
					return nil, nil
				},
			},
		},
	})

	userInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    {Type: nonNull(graphql.String)},
			"name":     {Type: nonNull(graphql.String)},
			"password": {Type: nonNull(graphql.String)},
		},
	})

	postInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PostInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":    {Type: nonNull(graphql.String)},
			"content":  {Type: nonNull(graphql.String)},
			"imageUrl": {Type: graphql.String},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"login": {
				Type: nonNull(authDataType),
				Args: graphql.FieldConfigArgument{
					"email":    {Type: nonNull(graphql.String)},
					"password": {Type: nonNull(graphql.String)},
				},
				Resolve: r.login,
			},
			"posts": {
				Type:    nonNull(postDataType),
				Args:    graphql.FieldConfigArgument{"page": {Type: graphql.Int}},
				Resolve: r.listPosts,
			},
			"post": {
				Type:    nonNull(postType),
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.post,
			},
			"user": {
				Type:    nonNull(userType),
				Resolve: r.user,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createUser": {
				Type:    nonNull(userType),
				Args:    graphql.FieldConfigArgument{"userInput": {Type: nonNull(userInputType)}},
				Resolve: r.createUser,
			},
			"createPost": {
				Type:    nonNull(postType),
				Args:    graphql.FieldConfigArgument{"postInput": {Type: nonNull(postInputType)}},
				Resolve: r.createPost,
			},
			"updatePost": {
				Type: nonNull(postType),
				Args: graphql.FieldConfigArgument{
					"id":        {Type: nonNull(graphql.ID)},
					"postInput": {Type: nonNull(postInputType)},
				},
				Resolve: r.updatePost,
			},
			"deletePost": {
				Type:    nonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"id": {Type: nonNull(graphql.ID)}},
				Resolve: r.deletePost,
			},
			"updateStatus": {
				Type:    nonNull(userType),
				Args:    graphql.FieldConfigArgument{"status": {Type: nonNull(graphql.String)}},
				Resolve: r.updateStatus,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
