package pgcatalog

// userSchemas restricts a query joined to pg_namespace n to user schemas.
const userSchemas = `n.nspname <> 'information_schema' AND n.nspname !~ '^pg_'`

// dumpableRelkinds are the pg_class kinds registered as table units.
const dumpableRelkinds = `('r', 'p', 'v', 'm', 'f', 'S')`

// collectedRelkinds adds the relations of stand-alone composite types. They
// are never emitted but carry the column dependencies of their type.
const collectedRelkinds = `('r', 'p', 'v', 'm', 'f', 'S', 'c')`

const queryExportSnapshot = `SELECT pg_catalog.pg_export_snapshot()`

const queryRoles = `SELECT oid, rolname FROM pg_catalog.pg_roles ORDER BY oid`

const queryNamespaces = `
SELECT n.oid, n.nspname, n.nspowner
FROM pg_catalog.pg_namespace n
ORDER BY n.oid`

const queryExtensions = `
SELECT e.oid, e.extname, n.nspname, e.extowner
FROM pg_catalog.pg_extension e
JOIN pg_catalog.pg_namespace n ON n.oid = e.extnamespace
ORDER BY e.oid`

const queryExtensionConfig = `
SELECT e.oid, c.cfg, COALESCE(c.cond, '')
FROM pg_catalog.pg_extension e
CROSS JOIN LATERAL unnest(e.extconfig, e.extcondition) WITH ORDINALITY AS c(cfg, cond, ord)
WHERE c.cfg IS NOT NULL
ORDER BY e.oid, c.ord`

const queryRelations = `
SELECT c.oid, c.relname, n.nspname, c.relowner, c.relkind::text, c.relpages::int8,
       c.relispopulated, c.relispartition
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ` + collectedRelkinds + ` AND ` + userSchemas + `
ORDER BY c.oid`

const queryInherits = `
SELECT i.inhrelid, i.inhparent
FROM pg_catalog.pg_inherits i
JOIN pg_catalog.pg_class c ON c.oid = i.inhrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ` + dumpableRelkinds + ` AND ` + userSchemas + `
ORDER BY i.inhrelid, i.inhseqno`

const queryConstraints = `
SELECT co.oid, co.conname, n.nspname, co.contype::text, co.conrelid, co.confrelid, co.convalidated
FROM pg_catalog.pg_constraint co
JOIN pg_catalog.pg_class c ON c.oid = co.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE co.contype IN ('c', 'f', 'p', 'u', 'x') AND ` + userSchemas + `
ORDER BY co.oid`

// Indexes backing a primary key, unique or exclusion constraint are
// emitted with the constraint.
const queryIndexes = `
SELECT i.indexrelid, ic.relname, n.nspname, i.indrelid
FROM pg_catalog.pg_index i
JOIN pg_catalog.pg_class ic ON ic.oid = i.indexrelid
JOIN pg_catalog.pg_namespace n ON n.oid = ic.relnamespace
WHERE ` + userSchemas + `
  AND NOT EXISTS (
    SELECT 1 FROM pg_catalog.pg_constraint co
    WHERE co.conindid = i.indexrelid AND co.contype IN ('p', 'u', 'x'))
ORDER BY i.indexrelid`

const queryRules = `
SELECT r.oid, r.rulename, n.nspname, r.ev_class, c.relkind::text
FROM pg_catalog.pg_rewrite r
JOIN pg_catalog.pg_class c ON c.oid = r.ev_class
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE ` + userSchemas + `
ORDER BY r.oid`

const queryTriggers = `
SELECT t.oid, t.tgname, n.nspname, t.tgrelid
FROM pg_catalog.pg_trigger t
JOIN pg_catalog.pg_class c ON c.oid = t.tgrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE NOT t.tgisinternal AND ` + userSchemas + `
ORDER BY t.oid`

const queryPolicies = `
SELECT p.oid, p.polname, n.nspname, p.polrelid
FROM pg_catalog.pg_policy p
JOIN pg_catalog.pg_class c ON c.oid = p.polrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE ` + userSchemas + `
ORDER BY p.oid`

const queryDefaults = `
SELECT d.oid, a.attname, n.nspname, d.adrelid
FROM pg_catalog.pg_attrdef d
JOIN pg_catalog.pg_attribute a ON a.attrelid = d.adrelid AND a.attnum = d.adnum
JOIN pg_catalog.pg_class c ON c.oid = d.adrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE ` + userSchemas + `
ORDER BY d.oid`

// Table row types are covered by their table; stand-alone composite
// types are kept.
const queryTypes = `
SELECT t.oid, t.typname, n.nspname, t.typowner
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE ` + userSchemas + `
  AND (t.typtype IN ('d', 'e', 'r', 'm')
    OR (t.typtype = 'c' AND EXISTS (
      SELECT 1 FROM pg_catalog.pg_class c WHERE c.oid = t.typrelid AND c.relkind = 'c')))
ORDER BY t.oid`

const queryFunctions = `
SELECT p.oid, p.proname, n.nspname, p.proowner, p.prokind::text
FROM pg_catalog.pg_proc p
JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
WHERE ` + userSchemas + `
ORDER BY p.oid`

const queryDepend = `
SELECT classid, objid, refclassid, refobjid, deptype::text
FROM pg_catalog.pg_depend
WHERE deptype <> 'p'
ORDER BY classid, objid, refclassid, refobjid`

const queryOperatorFamilies = `
SELECT 'pg_catalog.pg_amop'::regclass::oid, o.oid, o.amopfamily
FROM pg_catalog.pg_amop o
JOIN pg_catalog.pg_opfamily f ON f.oid = o.amopfamily
JOIN pg_catalog.pg_namespace n ON n.oid = f.opfnamespace
WHERE ` + userSchemas + `
UNION ALL
SELECT 'pg_catalog.pg_amproc'::regclass::oid, p.oid, p.amprocfamily
FROM pg_catalog.pg_amproc p
JOIN pg_catalog.pg_opfamily f ON f.oid = p.amprocfamily
JOIN pg_catalog.pg_namespace n ON n.oid = f.opfnamespace
WHERE ` + userSchemas

// Materialized views reading other materialized views, looking through
// intermediate plain views.
const queryMatViewDeps = `
WITH RECURSIVE w AS (
  SELECT d1.objid, d2.refobjid, c2.relkind AS refrelkind
  FROM pg_catalog.pg_depend d1
  JOIN pg_catalog.pg_class c1 ON c1.oid = d1.objid AND c1.relkind = 'm'
  JOIN pg_catalog.pg_rewrite r1 ON r1.ev_class = d1.objid
  JOIN pg_catalog.pg_depend d2 ON d2.classid = 'pg_catalog.pg_rewrite'::regclass
    AND d2.objid = r1.oid AND d2.refobjid <> d1.objid
  JOIN pg_catalog.pg_class c2 ON c2.oid = d2.refobjid AND c2.relkind IN ('m', 'v')
  WHERE d1.classid = 'pg_catalog.pg_class'::regclass
  UNION
  SELECT w.objid, d3.refobjid, c3.relkind
  FROM w
  JOIN pg_catalog.pg_rewrite r3 ON r3.ev_class = w.refobjid
  JOIN pg_catalog.pg_depend d3 ON d3.classid = 'pg_catalog.pg_rewrite'::regclass
    AND d3.objid = r3.oid AND d3.refobjid <> w.refobjid
  JOIN pg_catalog.pg_class c3 ON c3.oid = d3.refobjid AND c3.relkind IN ('m', 'v')
  WHERE w.refrelkind = 'v'
)
SELECT DISTINCT objid, refobjid FROM w WHERE refrelkind = 'm' ORDER BY 1, 2`

// Foreign keys whose referenced table belongs to an extension.
const queryConfigFKs = `
SELECT DISTINCT co.conrelid, co.confrelid
FROM pg_catalog.pg_constraint co
JOIN pg_catalog.pg_depend d ON d.objid = co.confrelid
WHERE co.contype = 'f'
  AND d.refclassid = 'pg_catalog.pg_extension'::regclass
  AND d.classid = 'pg_catalog.pg_class'::regclass
ORDER BY 1, 2`

const queryComments = `
SELECT classoid, objoid, description
FROM pg_catalog.pg_description
WHERE objsubid = 0
ORDER BY classoid, objoid`

const querySecurityLabels = `
SELECT classoid, objoid, provider, label
FROM pg_catalog.pg_seclabel
WHERE objsubid = 0
ORDER BY classoid, objoid, provider`
