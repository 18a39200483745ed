package session

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/boardsync/board"
	"github.com/c360studio/boardsync/cache"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/mutation"
	"github.com/c360studio/boardsync/remote"
)

// CreateProject applies a new project optimistically and creates it on the
// server. The returned ticket resolves with the authoritative project.
func (s *Session) CreateProject(ctx context.Context, draft remote.ProjectDraft) (*mutation.Ticket[model.Project], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	if draft.Title == "" {
		return nil, remote.NewError(remote.ClassValidation, "create project", "title is required")
	}

	now := time.Now()
	project := model.Project{
		ID:          model.NewTemporaryID(),
		Title:       draft.Title,
		Description: draft.Description,
		Status:      model.NormalizeProjectStatus(draft.Status),
		DueDate:     draft.DueDate,
		Owner:       s.UserID(),
		Members:     append([]string(nil), draft.Members...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.projExec.Execute(ctx, mutation.Mutation[model.Project]{
		Kind:   mutation.KindCreate,
		Key:    cache.ProjectsKey,
		Entity: project,
		Call: func(ctx context.Context) (model.Project, error) {
			return s.api.CreateProject(ctx, draft)
		},
		Event: mutation.ChangeEvent{
			Scope:   "project",
			Action:  "created",
			Summary: fmt.Sprintf("project %q created", draft.Title),
		},
	})
}

// UpdateProject patches a loaded project optimistically.
func (s *Session) UpdateProject(ctx context.Context, id model.EntityID, patch remote.ProjectPatch) (*mutation.Ticket[model.Project], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	current, err := s.loadedProject(id, "update project")
	if err != nil {
		return nil, err
	}

	optimistic := applyProjectPatch(current, patch)

	return s.projExec.Execute(ctx, mutation.Mutation[model.Project]{
		Kind:   mutation.KindUpdate,
		Key:    cache.ProjectsKey,
		ID:     id,
		Entity: optimistic,
		Call: func(ctx context.Context) (model.Project, error) {
			return s.api.UpdateProject(ctx, id, patch)
		},
		Event: mutation.ChangeEvent{
			Scope:   "project",
			Action:  "updated",
			Summary: fmt.Sprintf("project %q updated", optimistic.Title),
		},
	})
}

// DeleteProject removes a project. Only the owner may delete; the check
// runs locally before any optimistic state changes.
func (s *Session) DeleteProject(ctx context.Context, id model.EntityID) (*mutation.Ticket[model.Project], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	current, err := s.loadedProject(id, "delete project")
	if err != nil {
		return nil, err
	}
	if !current.CanDelete(s.UserID()) {
		return nil, remote.NewError(remote.ClassForbidden, "delete project", "only the owner can delete a project")
	}

	return s.projExec.Execute(ctx, mutation.Mutation[model.Project]{
		Kind: mutation.KindDelete,
		Key:  cache.ProjectsKey,
		ID:   id,
		Call: func(ctx context.Context) (model.Project, error) {
			return model.Project{}, s.api.DeleteProject(ctx, id)
		},
		Event: mutation.ChangeEvent{
			Scope:   "project",
			Action:  "deleted",
			Summary: fmt.Sprintf("project %q deleted", current.Title),
		},
	})
}

// CreateTask applies a new task optimistically and creates it on the server.
// The parent project must be loaded.
func (s *Session) CreateTask(ctx context.Context, draft remote.TaskDraft) (*mutation.Ticket[model.Task], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	if draft.Title == "" {
		return nil, remote.NewError(remote.ClassValidation, "create task", "title is required")
	}

	now := time.Now()
	task := model.Task{
		ID:          model.NewTemporaryID(),
		ProjectID:   draft.ProjectID,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      model.NormalizeStatus(string(draft.Status)),
		Assignee:    draft.Assignee,
		Priority:    model.NormalizePriority(string(draft.Priority)),
		DueDate:     draft.DueDate,
		Tags:        append([]string(nil), draft.Tags...),
		Subtasks:    append([]model.Subtask(nil), draft.Subtasks...),
		CreatedBy:   s.UserID(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.taskExec.Execute(ctx, mutation.Mutation[model.Task]{
		Kind:      mutation.KindCreate,
		Key:       cache.TasksKey(draft.ProjectID),
		Entity:    task,
		ProjectID: draft.ProjectID,
		Call: func(ctx context.Context) (model.Task, error) {
			return s.api.CreateTask(ctx, draft)
		},
		Event: mutation.ChangeEvent{
			Scope:     "task",
			Action:    "created",
			ProjectID: draft.ProjectID.String(),
			Summary:   fmt.Sprintf("task %q created", draft.Title),
		},
	})
}

// UpdateTask patches a loaded task optimistically.
func (s *Session) UpdateTask(ctx context.Context, projectID, id model.EntityID, patch remote.TaskPatch) (*mutation.Ticket[model.Task], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	current, err := s.loadedTask(projectID, id, "update task")
	if err != nil {
		return nil, err
	}

	optimistic := applyTaskPatch(current, patch)

	return s.taskExec.Execute(ctx, mutation.Mutation[model.Task]{
		Kind:      mutation.KindUpdate,
		Key:       cache.TasksKey(projectID),
		ID:        id,
		Entity:    optimistic,
		ProjectID: projectID,
		Call: func(ctx context.Context) (model.Task, error) {
			return s.api.UpdateTask(ctx, id, patch)
		},
		Event: mutation.ChangeEvent{
			Scope:     "task",
			Action:    "updated",
			EntityID:  id.String(),
			ProjectID: projectID.String(),
			Summary:   fmt.Sprintf("task %q updated", optimistic.Title),
		},
	})
}

// MoveTask changes a task's board column. The raw column name is already
// normalized by board.MoveRequest.
func (s *Session) MoveTask(ctx context.Context, projectID model.EntityID, move board.Move) (*mutation.Ticket[model.Task], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	current, err := s.loadedTask(projectID, move.TaskID, "move task")
	if err != nil {
		return nil, err
	}

	optimistic := current.Clone()
	optimistic.Status = move.To
	optimistic.UpdatedAt = time.Now()

	return s.taskExec.Execute(ctx, mutation.Mutation[model.Task]{
		Kind:      mutation.KindUpdate,
		Key:       cache.TasksKey(projectID),
		ID:        move.TaskID,
		Entity:    optimistic,
		ProjectID: projectID,
		Call: func(ctx context.Context) (model.Task, error) {
			return s.api.UpdateTaskStatus(ctx, move.TaskID, move.To)
		},
		Event: mutation.ChangeEvent{
			Scope:     "task",
			Action:    "updated",
			EntityID:  move.TaskID.String(),
			ProjectID: projectID.String(),
			Summary:   fmt.Sprintf("task %q moved to %s", current.Title, move.To.DisplayName()),
		},
	})
}

// DeleteTask removes a task. Only its creator may delete; the check runs
// locally before any optimistic state changes.
func (s *Session) DeleteTask(ctx context.Context, projectID, id model.EntityID) (*mutation.Ticket[model.Task], error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	current, err := s.loadedTask(projectID, id, "delete task")
	if err != nil {
		return nil, err
	}
	if !current.CanDelete(s.UserID()) {
		return nil, remote.NewError(remote.ClassForbidden, "delete task", "only the creator can delete a task")
	}

	return s.taskExec.Execute(ctx, mutation.Mutation[model.Task]{
		Kind:      mutation.KindDelete,
		Key:       cache.TasksKey(projectID),
		ID:        id,
		ProjectID: projectID,
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, s.api.DeleteTask(ctx, id)
		},
		Event: mutation.ChangeEvent{
			Scope:     "task",
			Action:    "deleted",
			EntityID:  id.String(),
			ProjectID: projectID.String(),
			Summary:   fmt.Sprintf("task %q deleted", current.Title),
		},
	})
}

func (s *Session) loadedProject(id model.EntityID, op string) (model.Project, error) {
	snap, ok := s.projects.Get(cache.ProjectsKey)
	if !ok {
		return model.Project{}, remote.NewError(remote.ClassValidation, op, "projects are not loaded")
	}
	current, found := snap.Find(id)
	if !found {
		return model.Project{}, remote.NewError(remote.ClassNotFound, op,
			fmt.Sprintf("project %s is not in the loaded list", id))
	}
	return current, nil
}

func (s *Session) loadedTask(projectID, id model.EntityID, op string) (model.Task, error) {
	snap, ok := s.tasks.Get(cache.TasksKey(projectID))
	if !ok {
		return model.Task{}, remote.NewError(remote.ClassValidation, op, "tasks are not loaded")
	}
	current, found := snap.Find(id)
	if !found {
		return model.Task{}, remote.NewError(remote.ClassNotFound, op,
			fmt.Sprintf("task %s is not in the loaded list", id))
	}
	return current, nil
}

func applyProjectPatch(p model.Project, patch remote.ProjectPatch) model.Project {
	out := p.Clone()
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Status != nil {
		out.Status = model.NormalizeProjectStatus(*patch.Status)
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		out.DueDate = &due
	}
	if patch.Members != nil {
		out.Members = append([]string(nil), (*patch.Members)...)
	}
	out.UpdatedAt = time.Now()
	return out
}

func applyTaskPatch(t model.Task, patch remote.TaskPatch) model.Task {
	out := t.Clone()
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Status != nil {
		out.Status = model.NormalizeStatus(string(*patch.Status))
	}
	if patch.Assignee != nil {
		out.Assignee = *patch.Assignee
	}
	if patch.Priority != nil {
		out.Priority = model.NormalizePriority(string(*patch.Priority))
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		out.DueDate = &due
	}
	if patch.Tags != nil {
		out.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.Subtasks != nil {
		out.Subtasks = append([]model.Subtask(nil), (*patch.Subtasks)...)
	}
	if patch.Starred != nil {
		out.Starred = *patch.Starred
	}
	out.UpdatedAt = time.Now()
	return out
}
