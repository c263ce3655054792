package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/neo4jdb"
)

// Neo4jStore implements Store against a Neo4j database.
type Neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) (*Neo4jStore, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	s := &Neo4jStore{
		client: client,
		log:    log.With("service", "GraphStore"),
	}
	s.ensureSchema(ctx)
	return s, nil
}

var schemaStatements = []string{
	`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT section_id_unique IF NOT EXISTS FOR (s:Section) REQUIRE s.id IS UNIQUE`,
	`CREATE CONSTRAINT slide_id_unique IF NOT EXISTS FOR (s:Slide) REQUIRE s.id IS UNIQUE`,
	`CREATE CONSTRAINT concept_name_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT canonical_concept_name_unique IF NOT EXISTS FOR (c:CanonicalConcept) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT project_id_unique IF NOT EXISTS FOR (p:Project) REQUIRE p.id IS UNIQUE`,
	`CREATE CONSTRAINT target_node_id_unique IF NOT EXISTS FOR (t:TargetNode) REQUIRE t.id IS UNIQUE`,
}

// ensureSchema is best-effort; it may fail for restricted users.
func (s *Neo4jStore) ensureSchema(ctx context.Context) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)
	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

func (s *Neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

func (s *Neo4jStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *Neo4jStore) runWrite(ctx context.Context, cypher string, params map[string]any) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *Neo4jStore) runRead(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records, ok := out.([]*neo4j.Record)
	if !ok {
		return nil, fmt.Errorf("graph: unexpected result type %T", out)
	}
	return records, nil
}

// -------------------- ingestion writes --------------------

func (s *Neo4jStore) UpsertCourse(ctx context.Context, course domain.Course) error {
	if strings.TrimSpace(course.ID) == "" {
		return fmt.Errorf("graph: course id required")
	}
	return s.runWrite(ctx, `
MERGE (c:Course {id: $id})
SET c.title = $title,
    c.business_unit = $business_unit,
    c.version = $version,
    c.delivery_method = $delivery_method,
    c.duration_hours = $duration_hours,
    c.audience = $audience,
    c.level = $level,
    c.discipline = $discipline
`, map[string]any{
		"id":              course.ID,
		"title":           course.Title,
		"business_unit":   course.BusinessUnit,
		"version":         course.Version,
		"delivery_method": course.DeliveryMethod,
		"duration_hours":  course.DurationHours,
		"audience":        course.Audience,
		"level":           course.Level,
		"discipline":      course.Discipline,
	})
}

func (s *Neo4jStore) UpsertSections(ctx context.Context, rows []SectionRecord) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.ParentID) == "" {
			return fmt.Errorf("graph: section id and parent id required")
		}
		batch = append(batch, map[string]any{
			"id":        r.ID,
			"parent_id": r.ParentID,
			"title":     r.Title,
			"level":     int64(r.Level),
		})
	}
	return s.runWrite(ctx, `
UNWIND $rows AS row
MERGE (s:Section {id: row.id})
SET s.title = row.title, s.level = row.level
WITH s, row
MATCH (p) WHERE p.id = row.parent_id AND (p:Course OR p:Section)
MERGE (p)-[:HAS_SECTION]->(s)
`, map[string]any{"rows": batch})
}

func (s *Neo4jStore) UpsertSlide(ctx context.Context, courseID string, slide domain.Slide) error {
	if strings.TrimSpace(courseID) == "" || strings.TrimSpace(slide.ID) == "" {
		return fmt.Errorf("graph: course id and slide id required")
	}
	return s.runWrite(ctx, `
MATCH (c:Course {id: $course_id})
MERGE (sl:Slide {id: $id})
SET sl.number = $number,
    sl.text = $text,
    sl.asset_type = $asset_type
MERGE (c)-[:HAS_SLIDE]->(sl)
`, map[string]any{
		"course_id":  courseID,
		"id":         slide.ID,
		"number":     int64(slide.Number),
		"text":       slide.Text,
		"asset_type": slide.AssetType,
	})
}

func (s *Neo4jStore) UpsertSlideConcepts(ctx context.Context, slideID string, concepts []domain.ConceptSalience) error {
	if strings.TrimSpace(slideID) == "" {
		return fmt.Errorf("graph: slide id required")
	}
	if len(concepts) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(concepts))
	for _, c := range concepts {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		rows = append(rows, map[string]any{
			"name":        c.Name,
			"description": c.Description,
			"salience":    domain.ClampSalience(c.Salience),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.runWrite(ctx, `
MATCH (sl:Slide {id: $slide_id})
UNWIND $rows AS row
MERGE (con:Concept {name: row.name})
SET con.description = row.description
MERGE (sl)-[t:TEACHES]->(con)
SET t.salience = row.salience
`, map[string]any{"slide_id": slideID, "rows": rows})
}

func (s *Neo4jStore) SetSectionConceptSummaries(ctx context.Context, summaries map[string][]string) error {
	if len(summaries) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(summaries))
	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rows = append(rows, map[string]any{
			"id":      id,
			"summary": summaries[id],
		})
	}
	return s.runWrite(ctx, `
UNWIND $rows AS row
MATCH (s:Section {id: row.id})
SET s.concept_summary = row.summary
`, map[string]any{"rows": rows})
}

// -------------------- subtree load --------------------

func (s *Neo4jStore) CourseTree(ctx context.Context, courseID string) (*CourseTree, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("graph: course id required")
	}

	sectionRecords, err := s.runRead(ctx, `
MATCH (c:Course {id: $course_id})-[:HAS_SECTION*0..]->(p)-[:HAS_SECTION]->(s:Section)
RETURN p.id AS parent_id, s.id AS id, s.title AS title, coalesce(s.level, 0) AS level
`, map[string]any{"course_id": courseID})
	if err != nil {
		return nil, fmt.Errorf("graph: load sections: %w", err)
	}

	tree := &CourseTree{CourseID: courseID}
	for _, rec := range sectionRecords {
		id, err := stringValue(rec, "id")
		if err != nil {
			return nil, err
		}
		parentID, err := stringValue(rec, "parent_id")
		if err != nil {
			return nil, err
		}
		title, err := stringValue(rec, "title")
		if err != nil {
			return nil, err
		}
		level, err := intValue(rec, "level")
		if err != nil {
			return nil, err
		}
		tree.Sections = append(tree.Sections, SectionRecord{
			ID:       id,
			ParentID: parentID,
			Title:    title,
			Level:    level,
		})
	}

	teachRecords, err := s.runRead(ctx, `
MATCH (c:Course {id: $course_id})-[:HAS_SECTION*0..]->(owner)-[:HAS_SLIDE]->(sl:Slide)-[t:TEACHES]->(con:Concept)
RETURN owner.id AS owner_id, sl.id AS slide_id, con.name AS concept_name, coalesce(t.salience, $default_salience) AS salience
`, map[string]any{"course_id": courseID, "default_salience": domain.DefaultSalience})
	if err != nil {
		return nil, fmt.Errorf("graph: load teaches: %w", err)
	}

	for _, rec := range teachRecords {
		ownerID, err := stringValue(rec, "owner_id")
		if err != nil {
			return nil, err
		}
		slideID, err := stringValue(rec, "slide_id")
		if err != nil {
			return nil, err
		}
		name, err := stringValue(rec, "concept_name")
		if err != nil {
			return nil, err
		}
		salience, err := floatValue(rec, "salience")
		if err != nil {
			return nil, err
		}
		tree.Teaches = append(tree.Teaches, TeachRow{
			OwnerID:     ownerID,
			SlideID:     slideID,
			ConceptName: name,
			Salience:    salience,
		})
	}
	return tree, nil
}

// -------------------- harmonization --------------------

func (s *Neo4jStore) DistinctConceptNames(ctx context.Context) ([]string, error) {
	records, err := s.runRead(ctx, `MATCH (c:Concept) RETURN DISTINCT c.name AS name ORDER BY name`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: distinct concept names: %w", err)
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		name, err := stringValue(rec, "name")
		if err != nil {
			return nil, err
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// ApplyConceptCluster writes one cluster as a single transaction: the
// CanonicalConcept upsert plus ALIGNS_TO edges for every source concept that
// exists. Unknown source names are skipped by the MATCH.
func (s *Neo4jStore) ApplyConceptCluster(ctx context.Context, cluster domain.ConceptCluster) error {
	if strings.TrimSpace(cluster.CanonicalName) == "" {
		return fmt.Errorf("graph: canonical name required")
	}
	return s.runWrite(ctx, `
MERGE (cc:CanonicalConcept {name: $name})
SET cc.description = $description
WITH cc
UNWIND $sources AS source_name
MATCH (c:Concept {name: source_name})
MERGE (c)-[:ALIGNS_TO]->(cc)
`, map[string]any{
		"name":        cluster.CanonicalName,
		"description": cluster.Description,
		"sources":     cluster.SourceConcepts,
	})
}

// -------------------- generation reads --------------------

func (s *Neo4jStore) ExpandSources(ctx context.Context, sourceIDs []string) ([]SourceUnit, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	records, err := s.runRead(ctx, `
UNWIND $source_ids AS sid
MATCH (n) WHERE n.id = sid AND (n:Course OR n:Section)
OPTIONAL MATCH (n)-[:HAS_SECTION*]->(child:Section)
WITH n, collect(child) AS children
WITH n, CASE WHEN size(children) > 0 THEN children ELSE [n] END AS targets
UNWIND targets AS target
OPTIONAL MATCH (target)<-[:HAS_SECTION*]-(c:Course)
WITH target,
     coalesce(c.business_unit, n.business_unit, 'Unknown') AS bu,
     coalesce(c.id, n.id) AS course_id
OPTIONAL MATCH (target)-[:HAS_SECTION*0..]->()-[:HAS_SLIDE]->(sl:Slide)-[t:TEACHES]->(con:Concept)
WITH target, bu, course_id, con.name AS concept_name, max(coalesce(t.salience, 0.0)) AS max_salience
WITH target, bu, course_id,
     collect(CASE WHEN concept_name IS NULL THEN null ELSE {name: concept_name, score: max_salience} END) AS concepts
RETURN target.id AS unit_id,
       coalesce(target.title, '') AS title,
       bu,
       course_id,
       [x IN concepts WHERE x IS NOT NULL] AS concepts
`, map[string]any{"source_ids": sourceIDs})
	if err != nil {
		return nil, fmt.Errorf("graph: expand sources: %w", err)
	}

	out := make([]SourceUnit, 0, len(records))
	for _, rec := range records {
		unitID, err := stringValue(rec, "unit_id")
		if err != nil {
			return nil, err
		}
		title, err := stringValue(rec, "title")
		if err != nil {
			return nil, err
		}
		bu, err := stringValue(rec, "bu")
		if err != nil {
			return nil, err
		}
		courseID, err := stringValue(rec, "course_id")
		if err != nil {
			return nil, err
		}
		weights, err := conceptWeights(rec, "concepts")
		if err != nil {
			return nil, err
		}
		out = append(out, SourceUnit{
			ID:           unitID,
			Title:        title,
			BusinessUnit: bu,
			CourseID:     courseID,
			Concepts:     weights,
		})
	}
	return out, nil
}

func (s *Neo4jStore) SlidesForCourses(ctx context.Context, courseIDs []string) ([]SlideRef, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	records, err := s.runRead(ctx, `
MATCH (c:Course)-[:HAS_SECTION*0..]->()-[:HAS_SLIDE]->(s:Slide)
WHERE c.id IN $course_ids
RETURN DISTINCT s.id AS id, coalesce(s.text, '') AS text
`, map[string]any{"course_ids": courseIDs})
	if err != nil {
		return nil, fmt.Errorf("graph: slides for courses: %w", err)
	}
	out := make([]SlideRef, 0, len(records))
	for _, rec := range records {
		id, err := stringValue(rec, "id")
		if err != nil {
			return nil, err
		}
		text, err := stringValue(rec, "text")
		if err != nil {
			return nil, err
		}
		out = append(out, SlideRef{ID: id, Text: text})
	}
	return out, nil
}

func (s *Neo4jStore) MasterOutline(ctx context.Context, courseID string) ([]MasterSection, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("graph: course id required")
	}
	records, err := s.runRead(ctx, `
MATCH (c:Course {id: $course_id})-[:HAS_SECTION*]->(s:Section)
RETURN s.id AS id, coalesce(s.title, '') AS title, coalesce(s.level, 0) AS level,
       coalesce(s.concept_summary, []) AS concepts
ORDER BY s.id
`, map[string]any{"course_id": courseID})
	if err != nil {
		return nil, fmt.Errorf("graph: master outline: %w", err)
	}
	out := make([]MasterSection, 0, len(records))
	for _, rec := range records {
		id, err := stringValue(rec, "id")
		if err != nil {
			return nil, err
		}
		title, err := stringValue(rec, "title")
		if err != nil {
			return nil, err
		}
		level, err := intValue(rec, "level")
		if err != nil {
			return nil, err
		}
		concepts, err := stringSliceValue(rec, "concepts")
		if err != nil {
			return nil, err
		}
		out = append(out, MasterSection{ID: id, Title: title, Level: level, Concepts: concepts})
	}
	return out, nil
}

// -------------------- project persistence --------------------

// CreateProject writes the Project node, every TargetNode with its HAS_CHILD
// edge, and all SUGGESTED_SOURCE edges inside one transaction. Neo4j rolls
// the whole write back on any failure, so a project is either fully persisted
// or absent.
func (s *Neo4jStore) CreateProject(ctx context.Context, project domain.Project, nodes []TargetNodeRecord) error {
	if strings.TrimSpace(project.ID) == "" {
		return fmt.Errorf("graph: project id required")
	}
	nodeRows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		if strings.TrimSpace(n.Node.ID) == "" {
			return fmt.Errorf("graph: target node id required")
		}
		keyConcepts := n.Node.KeyConcepts
		if keyConcepts == nil {
			keyConcepts = []string{}
		}
		slideIDs := n.SlideIDs
		if slideIDs == nil {
			slideIDs = []string{}
		}
		nodeRows = append(nodeRows, map[string]any{
			"id":            n.Node.ID,
			"title":         n.Node.Title,
			"rationale":     n.Node.Rationale,
			"key_concepts":  keyConcepts,
			"status":        n.Node.Status,
			"order":         int64(n.Node.Order),
			"is_unassigned": n.Node.IsUnassigned,
			"slide_ids":     slideIDs,
		})
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CREATE (p:Project {
  id: $id,
  title: $title,
  created_at: datetime($created_at),
  status: $status
})
`, map[string]any{
			"id":         project.ID,
			"title":      project.Title,
			"created_at": project.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			"status":     project.Status,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(nodeRows) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
MATCH (p:Project {id: $project_id})
UNWIND $rows AS row
CREATE (t:TargetNode {
  id: row.id,
  title: row.title,
  rationale: row.rationale,
  key_concepts: row.key_concepts,
  status: row.status,
  order: row.order,
  is_unassigned: row.is_unassigned
})
CREATE (p)-[:HAS_CHILD]->(t)
WITH t, row
UNWIND CASE WHEN size(row.slide_ids) = 0 THEN [null] ELSE row.slide_ids END AS slide_id
WITH t, slide_id WHERE slide_id IS NOT NULL
MATCH (s:Slide {id: slide_id})
MERGE (t)-[:SUGGESTED_SOURCE]->(s)
`, map[string]any{"project_id": project.ID, "rows": nodeRows})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
