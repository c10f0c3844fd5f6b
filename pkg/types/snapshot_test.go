package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() *Snapshot {
	return &Snapshot{
		SnapshotID:   "snap-20260314103000-aaaa1111",
		DeploymentID: "prod",
		Timestamp:    time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Serial:       3,
		Resources: []Resource{
			{
				Type: "aws_instance",
				Name: "web",
				Mode: ModeManaged,
				Instances: []Instance{
					{Attributes: map[string]interface{}{
						"instance_type": "t3.micro",
						"tags":          map[string]interface{}{"env": "prod"},
					}},
				},
			},
			{
				Type:      "aws_s3_bucket",
				Name:      "logs",
				Mode:      ModeManaged,
				Instances: []Instance{{Attributes: map[string]interface{}{"acl": "private"}}},
			},
		},
		Outputs: map[string]Output{
			"endpoint": {Value: "https://example.com", Type: "string"},
		},
		Metadata: SnapshotMetadata{Provider: "aws", Environment: "production"},
	}
}

func TestSnapshotValidate(t *testing.T) {
	assert.NoError(t, validSnapshot().Validate())
}

func TestSnapshotValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing snapshot ID", func(s *Snapshot) { s.SnapshotID = " " }},
		{"missing deployment ID", func(s *Snapshot) { s.DeploymentID = "" }},
		{"zero timestamp", func(s *Snapshot) { s.Timestamp = time.Time{} }},
		{"nil resources", func(s *Snapshot) { s.Resources = nil }},
		{"invalid resource mode", func(s *Snapshot) { s.Resources[0].Mode = "ghost" }},
		{"duplicate resource key", func(s *Snapshot) {
			s.Resources = append(s.Resources, s.Resources[0])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestResourceKey(t *testing.T) {
	r := Resource{Type: "aws_instance", Name: "web"}
	assert.Equal(t, "aws_instance.web", r.Key())
}

func TestSnapshotResourceKeys(t *testing.T) {
	s := validSnapshot()
	assert.Equal(t, []string{"aws_instance.web", "aws_s3_bucket.logs"}, s.ResourceKeys())
	assert.Equal(t, 2, s.ResourceCount())
}

func TestSnapshotGetResource(t *testing.T) {
	s := validSnapshot()
	require.NotNil(t, s.GetResource("aws_instance.web"))
	assert.Nil(t, s.GetResource("aws_instance.db"))
}

func TestSnapshotClone_DeepCopy(t *testing.T) {
	original := validSnapshot()
	clone := original.Clone()

	require.Equal(t, original.SnapshotID, clone.SnapshotID)
	require.Len(t, clone.Resources, 2)

	// Mutating nested attribute maps of the clone must not touch the
	// original.
	cloneTags := clone.Resources[0].Instances[0].Attributes["tags"].(map[string]interface{})
	cloneTags["env"] = "hacked"

	originalTags := original.Resources[0].Instances[0].Attributes["tags"].(map[string]interface{})
	assert.Equal(t, "prod", originalTags["env"])

	clone.Outputs["endpoint"] = Output{Value: "changed"}
	assert.Equal(t, "https://example.com", original.Outputs["endpoint"].Value)
}

func TestInstanceClone(t *testing.T) {
	in := Instance{
		IndexKey:      0,
		SchemaVersion: 1,
		Attributes: map[string]interface{}{
			"list": []interface{}{map[string]interface{}{"port": 80}},
		},
		Dependencies: []string{"aws_security_group.web"},
	}

	clone := in.Clone()
	nested := clone.Attributes["list"].([]interface{})[0].(map[string]interface{})
	nested["port"] = 443

	originalNested := in.Attributes["list"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 80, originalNested["port"])

	clone.Dependencies[0] = "changed"
	assert.Equal(t, "aws_security_group.web", in.Dependencies[0])
}

func TestResourceFirstInstance(t *testing.T) {
	r := Resource{Type: "aws_instance", Name: "web"}
	assert.Nil(t, r.FirstInstance())

	r.Instances = []Instance{{SchemaVersion: 2}}
	require.NotNil(t, r.FirstInstance())
	assert.Equal(t, 2, r.FirstInstance().SchemaVersion)
}
