package usecase

import (
	"context"
	"fmt"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/kinto"

	"go.uber.org/zap"
)

// LoadGroup fetches a group attributes, members included, and permissions
func (c *Coordinator) LoadGroup(ctx context.Context, bid, gid string) {
	c.put(ctx, action.GroupBusyFlag(true))
	defer c.put(ctx, action.GroupBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		resp, err = remote.GetGroup(ctx, bid, gid)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't load group.", err)
		return
	}
	c.put(ctx, action.GroupLoadSucceeded(objectOf(resp)))
}

// CreateGroup creates a group with its members and opens its edition page
func (c *Coordinator) CreateGroup(ctx context.Context, m action.Mutation) {
	gid := m.Group
	if gid == "" {
		gid = m.Data.ID()
	}
	members := m.Members
	if members == nil {
		members = membersOf(m.Data)
	}

	c.put(ctx, action.GroupBusyFlag(true))
	defer c.put(ctx, action.GroupBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		_, err = remote.CreateGroup(ctx, m.Bucket, gid, members, withoutKeys(m.Data, "id", "members", "last_modified"), m.Permissions)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't create group.", err)
		return
	}
	c.log.Info("Group created", zap.String("bucket", m.Bucket), zap.String("group", gid))
	c.put(ctx, action.UpdatePath(fmt.Sprintf("/buckets/%s/groups/%s/edit", m.Bucket, gid)))
	c.notifySuccess(ctx, "Group created.")
}

// UpdateGroup replaces either the attributes or the permissions of a group
func (c *Coordinator) UpdateGroup(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.GroupBusyFlag(true))
	defer c.put(ctx, action.GroupBusyFlag(false))

	var (
		resp    *kinto.ObjectResponse
		message string
	)
	remote, err := c.client()
	if err == nil {
		wo := safeWrite(m.LastModified)
		if m.IsPermissions() {
			resp, err = remote.SetGroupPermissions(ctx, m.Bucket, m.Group, m.Permissions, wo)
			message = "Group permissions updated."
		} else {
			data := withoutKeys(m.Data, "last_modified")
			if m.Members != nil {
				data["members"] = m.Members
			}
			resp, err = remote.UpdateGroup(ctx, m.Bucket, m.Group, data, wo)
			message = "Group properties updated."
		}
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't update group.", err)
		return
	}
	c.put(ctx, action.GroupLoadSucceeded(objectOf(resp)))
	c.notifySuccess(ctx, message)
}

// DeleteGroup deletes a group and goes back to the groups of its bucket
func (c *Coordinator) DeleteGroup(ctx context.Context, bid, gid string) {
	c.put(ctx, action.GroupBusyFlag(true))
	defer c.put(ctx, action.GroupBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		err = remote.DeleteGroup(ctx, bid, gid, kinto.WriteOptions{})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't delete group.", err)
		return
	}
	c.log.Info("Group deleted", zap.String("bucket", bid), zap.String("group", gid))
	c.put(ctx, action.UpdatePath(fmt.Sprintf("/buckets/%s/groups", bid)))
	c.notifySuccess(ctx, "Group deleted.")
}

func membersOf(data kinto.Resource) []string {
	members := []string{}
	switch v := data["members"].(type) {
	case []string:
		members = append(members, v...)
	case []interface{}:
		for _, m := range v {
			if s, ok := m.(string); ok {
				members = append(members, s)
			}
		}
	}
	return members
}
